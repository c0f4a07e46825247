package dataset

// streaming.go wraps upload bodies so the CSV reader never sees a byte order
// mark or invalid UTF-8, without buffering the whole file.
//
// Use Sanitize to apply both transforms, and CountingReader to measure the
// raw input size.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SanitizingReader strips a leading UTF-8 BOM and replaces every invalid UTF-8
// byte with '?'. The replacement is a single byte so output never grows.
type SanitizingReader struct {
	src     *bufio.Reader
	pending []byte
}

// Sanitize returns r wrapped in a SanitizingReader.
func Sanitize(r io.Reader) *SanitizingReader {
	br := bufio.NewReader(r)
	// Peek errors surface again on the first Read.
	if b, _ := br.Peek(len(utf8BOM)); bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &SanitizingReader{src: br}
}

// Read implements io.Reader.
func (s *SanitizingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	var buf [utf8.UTFMax]byte
	for n < len(p) {
		// Hand back what we have rather than block on a slow source.
		if n > 0 && s.src.Buffered() == 0 {
			break
		}

		r, size, err := s.src.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}

		enc := buf[:1]
		if r == utf8.RuneError && size == 1 {
			buf[0] = '?'
		} else {
			enc = buf[:utf8.EncodeRune(buf[:], r)]
		}

		c := copy(p[n:], enc)
		n += c
		if c < len(enc) {
			s.pending = append(s.pending[:0], enc[c:]...)
			break
		}
	}
	return n, nil
}

// CountingReader tracks bytes read from the underlying reader.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}
