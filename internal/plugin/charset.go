package plugin

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultCharset is used when a file does not name one.
const DefaultCharset = "UTF-8"

func isUTF8(charset string) bool {
	switch strings.ToLower(strings.ReplaceAll(charset, "_", "-")) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

func lookupCharset(charset string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc, nil
}

// Encode converts s to bytes in charset.
func Encode(s, charset string) ([]byte, error) {
	if isUTF8(charset) {
		return []byte(s), nil
	}
	enc, err := lookupCharset(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewEncoder().Bytes([]byte(s))
}

// Decode converts b from charset to a string.
func Decode(b []byte, charset string) (string, error) {
	if isUTF8(charset) {
		return string(b), nil
	}
	enc, err := lookupCharset(charset)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
