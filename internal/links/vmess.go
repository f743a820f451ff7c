package links

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"v2desk/internal/profile"
)

// vmessJSON is the v2rayN share format.
type vmessJSON struct {
	V    interface{} `json:"v"`
	Ps   string      `json:"ps"`
	Add  string      `json:"add"`
	Port interface{} `json:"port"`
	ID   string      `json:"id"`
	Aid  interface{} `json:"aid"`
	Scy  string      `json:"scy,omitempty"`
	Net  string      `json:"net"`
	Type string      `json:"type"`
	Host string      `json:"host"`
	Path string      `json:"path"`
	TLS  string      `json:"tls"`
}

func parseVMess(raw string) (*profile.ServerProfile, error) {
	body := raw[strings.Index(raw, "://")+3:]
	body, remark, _ := strings.Cut(body, "#")

	jsonStr, err := DecodeBase64(body)
	if err != nil {
		return nil, fmt.Errorf("vmess base64 error: %w", err)
	}

	var v vmessJSON
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		return nil, fmt.Errorf("vmess json error: %w", err)
	}
	if v.Ps == "" {
		v.Ps = remark
	}

	doc := map[string]interface{}{
		"protocol":        string(profile.VMess),
		"serverName":      v.Ps,
		"serverAddr":      v.Add,
		"serverPort":      scalar(v.Port),
		"id":              v.ID,
		"alterId":         scalar(v.Aid),
		"security":        v.Scy,
		"networkSecurity": v.TLS,
	}
	if v.Scy == "" {
		doc["security"] = "auto"
	}

	network := strings.ToLower(v.Net)
	switch network {
	case "", "tcp":
		network = string(profile.TCP)
		doc["tcpHeaderType"] = v.Type
	case "h2", "http":
		network = string(profile.HTTP)
		doc["networkPath"] = v.Path
	case "ws":
		doc["networkPath"] = v.Path
	case "kcp", "mkcp":
		network = string(profile.KCP)
		doc["packetHeader"] = v.Type
	case "quic":
		doc["packetHeader"] = v.Type
		doc["quicSecurity"] = v.Host
		doc["quicKey"] = v.Path
	case "domainsocket", "ds":
		network = string(profile.DomainSocket)
		doc["domainSocketFilePath"] = v.Path
	}
	doc["network"] = network

	p := profile.FromMap(doc)
	if err := checkEndpoint(p); err != nil {
		return nil, err
	}
	return p, nil
}

func formatVMess(p *profile.ServerProfile) (string, error) {
	v := vmessJSON{
		V:    "2",
		Ps:   p.ServerName,
		Add:  p.ServerAddr,
		Port: strconv.Itoa(int(p.ServerPort)),
		ID:   p.ID,
		Aid:  strconv.Itoa(p.AlterID),
		Scy:  p.Security,
		Net:  string(p.Network),
		TLS:  p.NetworkSecurity,
	}

	switch p.Network {
	case profile.TCP:
		v.Type = p.TCPHeaderType
	case profile.KCP:
		v.Type = p.PacketHeader
	case profile.WebSocket, profile.HTTP:
		v.Path = p.NetworkPath
	case profile.QUIC:
		v.Type = p.PacketHeader
		v.Host = p.QUICSecurity
		v.Path = p.QUICKey
	case profile.DomainSocket:
		v.Path = p.DomainSocketFilePath
	}
	if v.Type == "" {
		v.Type = "none"
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(b), nil
}

// scalar flattens the string-or-number fields of the share format.
func scalar(v interface{}) interface{} {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return nil
	}
	return fmt.Sprintf("%v", v)
}

func checkEndpoint(p *profile.ServerProfile) error {
	if p.ServerAddr == "" {
		return fmt.Errorf("link has no server address")
	}
	if p.ServerPort == 0 {
		return fmt.Errorf("link has no usable port")
	}
	return nil
}
