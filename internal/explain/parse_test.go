package explain

import (
	"testing"

	"livecode/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []types.Step
	}{
		{
			name: "plain array",
			raw:  `[{"explanation":"assign x","lineHighlight":1,"variables":[{"name":"x","value":"1"}]}]`,
			want: []types.Step{{Explanation: "assign x", LineHighlight: types.IntPtr(1), Variables: []types.Variable{{Name: "x", Value: "1"}}}},
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: []types.Step{},
		},
		{
			name: "fenced with prose",
			raw:  "Here you go:\n```json\n[{\"explanation\":\"print\",\"variables\":[]}]\n```",
			want: []types.Step{{Explanation: "print", Variables: []types.Variable{}}},
		},
		{
			name: "wrapped object with map variables and non-string values",
			raw:  `{"steps":[{"explanation":"loop","lineHighlight":null,"variables":{"i":2,"acc":"ab"}}]}`,
			want: []types.Step{{Explanation: "loop", Variables: []types.Variable{{Name: "acc", Value: "ab"}, {Name: "i", Value: "2"}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSteps(tt.raw)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseSteps() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSteps_Unparseable(t *testing.T) {
	for _, raw := range []string{
		"",
		"I cannot help with that.",
		`{"message":"ok"}`,
		`[{"lineHighlight":1}]`,
		`[{"explanation":"x","lineHighlight":1.5}]`,
		`[{"explanation":"x","variables":"nope"}]`,
		`[{"explanation":"x","variables":[{"value":"1"}]}]`,
		`[1, 2, 3]`,
	} {
		_, err := ParseSteps(raw)
		assert.ErrorIs(t, err, ErrUnparseable, "input %q", raw)
	}
}

func TestNumberLines(t *testing.T) {
	assert.Equal(t, "1| a\n2| b\n", numberLines("a\nb"))
}
