package dataset

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("Country,GHI")...),
			expected: "Country,GHI",
		},
		{
			name:     "file without BOM",
			input:    []byte("Country,GHI"),
			expected: "Country,GHI",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM is invalid UTF-8",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: "??abc",
		},
		{
			name:     "multibyte runes kept",
			input:    []byte("Côte d'Ivoire,São Tomé"),
			expected: "Côte d'Ivoire,São Tomé",
		},
		{
			name:     "invalid single byte replaced",
			input:    []byte{'h', 'e', 0x80, 'l', 'o'},
			expected: "he?lo",
		},
		{
			name:     "BOM then invalid byte",
			input:    []byte{0xEF, 0xBB, 0xBF, 'h', 'e', 0x80, 'l', 'o'},
			expected: "he?lo",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(Sanitize(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestSanitize_TinyReads(t *testing.T) {
	input := "é,ü\n" + strings.Repeat("ñ", 50)
	r := Sanitize(iotest.OneByteReader(strings.NewReader(input)))

	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if string(out) != input {
		t.Errorf("got %q, want %q", out, input)
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input))

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if totalRead != len(input) {
		t.Errorf("total read = %d, want %d", totalRead, len(input))
	}
	if reader.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(input))
	}
}
