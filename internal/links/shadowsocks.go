package links

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"v2desk/internal/profile"
)

// parseShadowsocks handles SIP002 (ss://base64(method:pass)@host:port#name)
// and the legacy form (ss://base64(method:pass@host:port)#name).
func parseShadowsocks(raw string) (*profile.ServerProfile, error) {
	body := raw[strings.Index(raw, "://")+3:]
	body, fragment, _ := strings.Cut(body, "#")
	name, err := url.PathUnescape(fragment)
	if err != nil {
		name = fragment
	}
	body, _, _ = strings.Cut(body, "?")

	if strings.Contains(body, "@") {
		body = strings.TrimSuffix(body, "/")
	} else {
		decoded, err := DecodeBase64(body)
		if err != nil {
			return nil, fmt.Errorf("shadowsocks base64 error: %w", err)
		}
		body = decoded
	}

	at := strings.LastIndex(body, "@")
	if at < 0 {
		return nil, fmt.Errorf("invalid shadowsocks link")
	}
	userInfo, hostPort := body[:at], body[at+1:]

	if !strings.Contains(userInfo, ":") {
		if decoded, err := DecodeBase64(userInfo); err == nil {
			userInfo = decoded
		}
	} else if unescaped, err := url.PathUnescape(userInfo); err == nil {
		userInfo = unescaped
	}

	method, password, ok := strings.Cut(userInfo, ":")
	if !ok {
		return nil, fmt.Errorf("invalid shadowsocks userinfo")
	}

	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return nil, fmt.Errorf("invalid shadowsocks address: %w", err)
	}

	p := profile.FromMap(map[string]interface{}{
		"protocol":   string(profile.Shadowsocks),
		"serverName": name,
		"serverAddr": host,
		"serverPort": port,
		"encryption": method,
		"password":   password,
	})
	if err := checkEndpoint(p); err != nil {
		return nil, err
	}
	return p, nil
}

func formatShadowsocks(p *profile.ServerProfile) string {
	userInfo := fmt.Sprintf("%s:%s", p.Encryption, p.Password)
	safeUser := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(userInfo))

	u := url.URL{
		Scheme:   "ss",
		User:     url.User(safeUser),
		Host:     net.JoinHostPort(p.ServerAddr, strconv.Itoa(int(p.ServerPort))),
		Fragment: p.ServerName,
	}
	return u.String()
}
