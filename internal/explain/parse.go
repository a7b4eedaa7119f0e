package explain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"livecode/internal/types"
)

// ErrUnparseable means the service answered but the body is not a step array.
var ErrUnparseable = errors.New("response is not a well-formed step array")

type rawStep struct {
	Explanation   *string         `json:"explanation"`
	LineHighlight *float64        `json:"lineHighlight"`
	Variables     json.RawMessage `json:"variables"`
}

type rawVariable struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// ParseSteps decodes a step array from a service or model response.
// Markdown code fences and prose around the array are tolerated. An empty
// array is valid and yields no steps.
func ParseSteps(raw string) ([]types.Step, error) {
	body := extractArray(raw)
	if body == "" {
		return nil, ErrUnparseable
	}

	var items []rawStep
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	steps := make([]types.Step, 0, len(items))
	for i, item := range items {
		if item.Explanation == nil {
			return nil, fmt.Errorf("%w: step %d has no explanation", ErrUnparseable, i)
		}
		step := types.Step{Explanation: strings.TrimSpace(*item.Explanation)}

		if item.LineHighlight != nil {
			line := *item.LineHighlight
			if line != math.Trunc(line) || line < 0 {
				return nil, fmt.Errorf("%w: step %d has line %v", ErrUnparseable, i, line)
			}
			step.LineHighlight = types.IntPtr(int(line))
		}

		vars, err := parseVariables(item.Variables)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrUnparseable, i, err)
		}
		step.Variables = vars
		steps = append(steps, step)
	}
	return steps, nil
}

// extractArray returns the outermost JSON array in raw, or the "steps" array
// of a wrapping object.
func extractArray(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "{") {
		var wrapped struct {
			Steps json.RawMessage `json:"steps"`
		}
		if err := json.Unmarshal([]byte(s), &wrapped); err == nil && len(wrapped.Steps) > 0 {
			return string(wrapped.Steps)
		}
		return ""
	}

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// parseVariables accepts either [{name, value}] or a {name: value} object.
// Object keys are sorted since JSON objects carry no order.
func parseVariables(raw json.RawMessage) ([]types.Variable, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var list []rawVariable
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		vars := make([]types.Variable, 0, len(list))
		for _, v := range list {
			if v.Name == "" {
				return nil, errors.New("variable without name")
			}
			vars = append(vars, types.Variable{Name: v.Name, Value: valueString(v.Value)})
		}
		return vars, nil

	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		vars := make([]types.Variable, 0, len(names))
		for _, name := range names {
			vars = append(vars, types.Variable{Name: name, Value: valueString(m[name])})
		}
		return vars, nil
	}
	return nil, fmt.Errorf("variables must be an array or object")
}

func valueString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
