package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"Go 1.24 Released!", "go-1-24-released"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"Crème Brûlée à la Mode", "creme-brulee-a-la-mode"},
		{"multiple---separators___here", "multiple-separators-here"},
		{"ALLCAPS", "allcaps"},
		{"already-a-slug", "already-a-slug"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Slugify(tc.in), "input %q", tc.in)
	}
}
