package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    string
		wantErr bool
	}{
		"bare object": {
			in:   `{"overallScore": 80}`,
			want: `{"overallScore": 80}`,
		},
		"fenced with language tag": {
			in:   "Here you go:\n```json\n{\"overallScore\": 80}\n```\nGood luck!",
			want: `{"overallScore": 80}`,
		},
		"fenced without language tag": {
			in:   "```\n{\"text\": \"q\"}\n```",
			want: `{"text": "q"}`,
		},
		"object buried in prose": {
			in:   `Sure! The evaluation is {"overallScore": 55, "detailedFeedback": "ok"} as requested.`,
			want: `{"overallScore": 55, "detailedFeedback": "ok"}`,
		},
		"nested object": {
			in:   `{"complexityAnalysis": {"time": "O(n)", "space": "O(1)"}}`,
			want: `{"complexityAnalysis": {"time": "O(n)", "space": "O(1)"}}`,
		},
		"braces inside strings": {
			in:   `result: {"detailedFeedback": "use map[string]int{} here"}`,
			want: `{"detailedFeedback": "use map[string]int{} here"}`,
		},
		"no json at all": {
			in:      "I cannot help with that.",
			wantErr: true,
		},
		"unbalanced object": {
			in:      `{"overallScore": 80`,
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}
