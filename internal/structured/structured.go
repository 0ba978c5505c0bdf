// Package structured decodes model text output into typed/validated JSON
// per spec §4.9: parse, on failure repair, retry up to a configured round
// count, and return a ParseError carrying the text that ultimately failed.
package structured

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/jsonutil"
)

// Kind constrains the decoded shape beyond "valid JSON".
type Kind int

const (
	KindNoSchema Kind = iota
	KindObject
	KindArray
	KindEnum
)

// Mode is the provider-facing solicitation strategy; it does not change
// decoding itself, only what ChatBeforeSend wires into the request (json
// response_format vs. a synthetic forced tool call). Carried here so
// callers can thread one Config through request construction and decoding.
type Mode int

const (
	ModeAuto Mode = iota
	ModeJSON
	ModeTool
)

// RepairFunc overrides the default repair strategy (fence-strip + balanced
// extraction + jsonrepair). Receiving the text that failed to parse, it
// returns a candidate replacement to retry.
type RepairFunc func(text string) (string, error)

type Config struct {
	Schema         map[string]any
	Kind           Kind
	Mode           Mode
	EnumValues     []string
	EmitPartial    bool
	RepairText     RepairFunc
	MaxRepairRounds int
}

// Decoder parses and validates model text against a Config, compiling the
// JSON-Schema once so repeated Decode calls (one per stream revision, say)
// don't re-compile it.
type Decoder struct {
	cfg    Config
	schema *jsonschema.Schema
}

func NewDecoder(cfg Config) (*Decoder, error) {
	d := &Decoder{cfg: cfg}
	if cfg.MaxRepairRounds <= 0 {
		d.cfg.MaxRepairRounds = 1
	}
	if len(cfg.Schema) > 0 {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema.json", any(cfg.Schema)); err != nil {
			return nil, fmt.Errorf("add schema resource: %w", err)
		}
		sch, err := c.Compile("schema.json")
		if err != nil {
			return nil, fmt.Errorf("compile schema: %w", err)
		}
		d.schema = sch
	}
	return d, nil
}

// Decode runs the full protocol: parse, shape-check, schema-validate; on
// failure repair and retry up to MaxRepairRounds times.
func (d *Decoder) Decode(text string) (any, error) {
	candidate := text
	var lastErr error
	for round := 0; round <= d.cfg.MaxRepairRounds; round++ {
		value, err := d.parseAndValidate(candidate)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if round == d.cfg.MaxRepairRounds {
			break
		}
		repaired, repairErr := d.repair(candidate)
		if repairErr != nil {
			lastErr = repairErr
			break
		}
		candidate = repaired
	}
	err := siumai.NewError(siumai.ErrorParse, fmt.Sprintf("structured decode failed: %v", lastErr))
	err.Details = map[string]any{"repaired_text": candidate}
	return nil, err
}

func (d *Decoder) parseAndValidate(text string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, err
	}
	if err := d.checkShape(value); err != nil {
		return nil, err
	}
	if d.schema != nil {
		if err := d.schema.Validate(value); err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (d *Decoder) checkShape(value any) error {
	switch d.cfg.Kind {
	case KindObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected a JSON object, got %T", value)
		}
	case KindArray:
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("expected a JSON array, got %T", value)
		}
	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected a JSON string for enum, got %T", value)
		}
		for _, v := range d.cfg.EnumValues {
			if v == s {
				return nil
			}
		}
		return fmt.Errorf("value %q is not one of the configured enum values", s)
	}
	return nil
}

func (d *Decoder) repair(text string) (string, error) {
	if d.cfg.RepairText != nil {
		return d.cfg.RepairText(text)
	}
	return defaultRepair(text)
}

// defaultRepair strips surrounding fences, extracts a balanced bracketed
// slice if the text has leading/trailing prose, removes trailing commas,
// and finally runs jsonrepair as a catch-all.
func defaultRepair(text string) (string, error) {
	stripped := jsonutil.StripCodeFence(text)
	if extracted, ok := jsonutil.ExtractBalancedJSON(stripped); ok {
		stripped = extracted
	}
	stripped = removeTrailingCommas(stripped)

	if repaired, err := jsonrepair.JSONRepair(stripped); err == nil {
		return repaired, nil
	} else if _, unmarshalErr := isValidJSON(stripped); unmarshalErr == nil {
		return stripped, nil
	} else {
		return "", fmt.Errorf("repair failed: %w", err)
	}
}

func isValidJSON(s string) (any, error) {
	var v any
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

func removeTrailingCommas(s string) string {
	var b strings.Builder
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\t' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
