package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParentKey(t *testing.T) {
	assert.Equal(t, "42", ParentKey(ModeBatch, " 42 ", "0803 123 4567"))
	assert.Equal(t, "08031234567", ParentKey(ModeIncremental, "42", "0803 123 4567"))
	assert.Equal(t, "", ParentKey(ModeIncremental, "42", ""))
}

func TestChildKey(t *testing.T) {
	a := NewChildKey(1, "Jane Doe", 8)
	b := NewChildKey(1, "  jane   DOE ", 8)
	assert.Equal(t, a, b, "case and whitespace are not distinguishing")
	assert.Equal(t, "1_JANE DOE_8", a.String())

	assert.NotEqual(t, a, NewChildKey(1, "Jane Doe", 9), "age is part of identity")
	assert.NotEqual(t, a, NewChildKey(2, "Jane Doe", 8), "parent is part of identity")
}

func TestNameKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "JANE DOE"},
		{"  jane   doe ", "JANE DOE"},
		{"Renée", "RENÉE"},
		{"Rene\u0301e", "REN\u00c9E"}, // decomposed accent
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NameKey(tt.in), "NameKey(%q)", tt.in)
	}
}
