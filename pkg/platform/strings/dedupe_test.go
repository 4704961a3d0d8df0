package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeFold(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "empty stays empty", input: []string{}, expected: []string{}},
		{name: "trims", input: []string{"  halal ", "kosher"}, expected: []string{"halal", "kosher"}},
		{name: "drops blanks", input: []string{"", "   ", "vegan"}, expected: []string{"vegan"}},
		{name: "first spelling wins", input: []string{"Halal", "HALAL", "halal "}, expected: []string{"Halal"}},
		{name: "keeps order", input: []string{"b", "a", "B", "c"}, expected: []string{"b", "a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeFold(tt.input))
		})
	}
}
