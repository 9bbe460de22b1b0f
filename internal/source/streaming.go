package source

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Sanitize decodes a sheet export to clean UTF-8 before it reaches
// encoding/csv. A leading byte order mark is stripped; a UTF-16 mark (Excel's
// "Unicode text" export) switches decoding to UTF-16. Invalid UTF-8 becomes
// U+FFFD so one bad byte cannot reject a whole export.
func Sanitize(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// CountingReader tracks bytes read, for download logging and size limits.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}
