package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edublink/edublink/internal/prompts"
	"github.com/spf13/cobra"
)

func newPromptCmd() *cobra.Command {
	var inputs []string

	cmd := &cobra.Command{
		Use:   "prompt <tool>",
		Short: "Render the prompt a tool would send, without calling the model",
		Long: `Render the system and user prompt for a tool with the given inputs.
Inputs are passed as repeated --input key=value flags; omitted fields use
the tool's defaults. Nothing is sent over the network.`,
		Example: `  edublink prompt mcq --input topic=volcanoes --input count=3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			reg := prompts.Default()
			p, err := reg.Build(args[0], in)
			if errors.Is(err, prompts.ErrUnknownTool) {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(reg.Tools(), ", "))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tool: %s\ntemperature: %g\nmax_tokens: %d\n\n", p.Tool, p.Temperature, p.MaxTokens)
			fmt.Fprintf(out, "--- system ---\n%s\n\n--- user ---\n%s\n", p.System, p.User)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "Tool input as key=value (repeatable)")
	return cmd
}

func parseInputs(pairs []string) (prompts.Inputs, error) {
	in := make(prompts.Inputs, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --input %q, want key=value", kv)
		}
		in[k] = v
	}
	return in, nil
}
