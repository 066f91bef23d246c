package vision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupLines(t *testing.T) {
	frag := func(text string, x0, y0 int, conf float64) Fragment {
		return Fragment{Box: Box{X0: x0, Y0: y0, X1: x0 + 10, Y1: y0 + 10}, Text: text, Confidence: conf}
	}
	tests := []struct {
		name      string
		fragments []Fragment
		tolerance int
		want      []string
	}{
		{
			name:      "empty",
			fragments: nil,
			want:      []string{},
		},
		{
			name: "exact rows",
			fragments: []Fragment{
				frag("world", 50, 0, 0.9),
				frag("second", 0, 20, 0.95),
				frag("hello", 0, 0, 0.99),
			},
			want: []string{"hello world", "second"},
		},
		{
			name: "drops low confidence",
			fragments: []Fragment{
				frag("keep", 0, 0, 0.81),
				frag("edge", 10, 0, 0.8),
				frag("noise", 20, 0, 0.3),
			},
			want: []string{"keep"},
		},
		{
			name: "tolerance joins jittered words",
			fragments: []Fragment{
				frag("quick", 40, 3, 0.9),
				frag("The", 0, 0, 0.9),
				frag("fox", 90, 6, 0.9),
				frag("jumps", 0, 30, 0.9),
			},
			tolerance: 10,
			want:      []string{"The quick fox", "jumps"},
		},
		{
			name: "zero tolerance splits jittered words",
			fragments: []Fragment{
				frag("The", 0, 0, 0.9),
				frag("quick", 40, 3, 0.9),
			},
			want: []string{"The", "quick"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := groupLines(tt.fragments, 0.8, tt.tolerance)
			require.Equal(t, tt.want, got)
		})
	}
}
