package filter

import (
	"bytes"
	"mime"
	"strings"
	"unicode/utf8"
)

var wordDecoder = &mime.WordDecoder{}

// decodeEncodedHeader decodes RFC 2047 encoded-words, returning s unchanged
// when it cannot.
func decodeEncodedHeader(s string) (string, error) {
	return wordDecoder.DecodeHeader(s)
}

// encodeHeaderValue Q-encodes value when it is not plain ASCII.
func encodeHeaderValue(value string) string {
	return mime.QEncoding.Encode("utf-8", value)
}

// splitMessage returns the raw header block, the separator and the body.
func splitMessage(raw []byte) (header, sep, body []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+2], []byte("\r\n"), raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+1], []byte("\n"), raw[i+2:]
	}
	return raw, nil, nil
}

// headerFields splits a header block into fields, each with its
// continuation lines and line endings intact.
func headerFields(header []byte) []string {
	var fields []string
	lines := strings.SplitAfter(string(header), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(fields) > 0 {
			fields[len(fields)-1] += line
			continue
		}
		fields = append(fields, line)
	}
	return fields
}

// fieldName returns the header name of a raw field.
func fieldName(field string) string {
	name, _, ok := strings.Cut(field, ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(name)
}

// fieldValue returns the unfolded value of a raw field.
func fieldValue(field string) string {
	_, value, _ := strings.Cut(field, ":")
	value = strings.NewReplacer("\r\n", "", "\n", "").Replace(value)
	return strings.TrimSpace(value)
}

// singleLine flattens s and truncates it to max bytes on a rune boundary.
func singleLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 || len(s) <= max {
		return s
	}
	s = s[:max]
	for !utf8.ValidString(s) && len(s) > 0 {
		s = s[:len(s)-1]
	}
	return s + "..."
}
