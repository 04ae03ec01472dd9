package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/edublink/edublink/internal/prompts"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Tool   string         `json:"tool"`
	Inputs prompts.Inputs `json:"inputs"`
	// Stream is accepted for client compatibility and otherwise ignored.
	Stream StreamFlag `json:"stream"`
}

// StreamFlag is a boolean that also accepts 0, 1 and the usual yes/no words.
type StreamFlag bool

func (f *StreamFlag) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y", "on", "t":
		*f = true
	case "false", "0", "no", "n", "off", "f", "null":
		*f = false
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || (n != 0 && n != 1) {
			return fmt.Errorf("invalid stream flag %s", b)
		}
		*f = n == 1
	}
	return nil
}

const generateRequestSchema = `{
	"type": "object",
	"required": ["tool", "inputs"],
	"properties": {
		"tool":   {"type": "string", "minLength": 1},
		"inputs": {"type": "object"},
		"stream": {"anyOf": [
			{"type": "boolean"},
			{"enum": [0, 1]},
			{"type": "string", "pattern": "^(?i:true|false|yes|no|on|off|t|f|y|n|1|0)$"}
		]}
	}
}`

var requestSchema = mustCompileSchema("generate_request.json", generateRequestSchema)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	sch, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return sch
}

// ParseRequest validates body against the request schema and decodes it.
// Input numbers are kept as json.Number so they render exactly as sent.
func ParseRequest(body []byte) (*GenerateRequest, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := requestSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var req GenerateRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}
