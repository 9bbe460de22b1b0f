package source

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func TestSanitize(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("Your Name,Age\nAdé,8\n"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"plain", []byte("hello,world"), "hello,world"},
		{"utf-8 BOM stripped", append([]byte{0xEF, 0xBB, 0xBF}, "hello,world"...), "hello,world"},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"empty", nil, ""},
		{"invalid byte replaced", []byte("Ad\x80a,8"), "Ad\uFFFDa,8"},
		{"multibyte kept", []byte("Adé,Ọlá"), "Adé,Ọlá"},
		{"utf-16 with BOM", utf16, "Your Name,Age\nAdé,8\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(Sanitize(bytes.NewReader(tt.input)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestSanitizeLargeInput(t *testing.T) {
	input := "\xEF\xBB\xBF" + strings.Repeat("Ada Obi,Tobi,6\n", 10000)

	got, err := io.ReadAll(Sanitize(strings.NewReader(input)))
	require.NoError(t, err)
	assert.Equal(t, input[3:], string(got))
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input))

	n, err := io.Copy(io.Discard, reader)
	require.NoError(t, err)
	assert.Equal(t, int64(len(input)), n)
	assert.Equal(t, n, reader.BytesRead)
}
