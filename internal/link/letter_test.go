package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLetter(t *testing.T) {
	tests := []struct {
		ordinal int
		label   string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.label, FormatLetter(tt.ordinal), "ordinal %d", tt.ordinal)
	}
}

func TestParseLetter_RoundTrip(t *testing.T) {
	for i := 0; i < 1000; i++ {
		assert.Equal(t, i, ParseLetter(FormatLetter(i)), "ordinal %d", i)
	}
}

func TestParseLetter_Invalid(t *testing.T) {
	assert.Equal(t, -1, ParseLetter(""))
	assert.Equal(t, -1, ParseLetter("a"))
	assert.Equal(t, -1, ParseLetter("A1"))
}
