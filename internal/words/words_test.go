package words

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"crane", true},
		{"CRANE", true},
		{" slate ", true},
		{"zzzzz", false},
		{"cran", false},
		{"cranes", false},
		{"cr4ne", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsValid(tc.in), tc.in)
	}
}
