// Package cli implements the edublink command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Running it without a subcommand serves.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "edublink",
		Short: "EduBlink classroom content generator",
		Long: `edublink serves the EduBlink front-end and turns tool requests
(quizzes, worksheets, lesson plans, ...) into structured content using an
OpenAI chat model.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", ".env", "Path to an env or config file (optional)")

	root.AddCommand(
		newServeCmd(&configPath),
		newPromptCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
