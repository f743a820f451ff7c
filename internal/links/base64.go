package links

import (
	"encoding/base64"
	"strings"
)

// DecodeBase64 accepts standard and URL-safe alphabets, with or without
// padding.
func DecodeBase64(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	s = strings.TrimRight(s, "=")
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return string(b), nil
	}
	b, err = base64.URLEncoding.DecodeString(s)
	if err == nil {
		return string(b), nil
	}
	return "", err
}

// cleanLink strips whitespace that scraped links tend to carry.
func cleanLink(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
