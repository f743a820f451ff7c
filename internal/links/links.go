// Package links converts between server profiles and the share links used
// by subscription services (vmess:// and ss://).
package links

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"v2desk/internal/profile"

	"github.com/samber/lo"
)

var ErrUnsupportedScheme = errors.New("unsupported link scheme")

var regexLink = regexp.MustCompile(`(vmess|ss)://[a-zA-Z0-9_\-\.\:@\?=&%#+/]+`)

// Parse turns one share link into a profile. The profile is built through
// the same coercion path as an edited document, so defaults match.
func Parse(raw string) (*profile.ServerProfile, error) {
	raw = cleanLink(raw)
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, fmt.Errorf("invalid link format")
	}

	switch strings.ToLower(scheme) {
	case "vmess":
		return parseVMess(raw)
	case "ss", "shadowsocks":
		return parseShadowsocks(raw)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
}

// Format renders p as a share link.
func Format(p *profile.ServerProfile) (string, error) {
	switch p.Protocol {
	case profile.VMess:
		return formatVMess(p)
	case profile.Shadowsocks:
		return formatShadowsocks(p), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, p.Protocol)
}

// Extract pulls every distinct link out of subscription text. The text may
// be a plain list or a single base64 blob.
func Extract(text string) []string {
	if !strings.Contains(text, "://") {
		if decoded, err := DecodeBase64(strings.Join(strings.Fields(text), "")); err == nil {
			text = decoded
		}
	}

	var found []string
	text = strings.ReplaceAll(text, "\r\n", "\n")
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, match := range regexLink.FindAllString(line, -1) {
			if clean := strings.TrimRight(match, ".,;)\""); clean != "" {
				found = append(found, clean)
			}
		}
	}
	return lo.Uniq(found)
}
