package compiler

import (
	"fmt"
	"strings"

	"v2desk/internal/profile"
)

func (c *Compiler) buildStreamSettings(p *profile.ServerProfile) (StreamSettings, []Diagnostic) {
	security := strings.ToLower(p.NetworkSecurity)
	sc := StreamSettings{
		Network:     string(p.Network),
		Security:    &security,
		TLSSettings: &TLSSettings{AllowInsecure: p.AllowInsecure},
	}

	switch p.Network {
	case profile.TCP:
		sc.TCPSettings = c.buildTCP(p)
	case profile.KCP:
		sc.KCPSettings = &KCPSettings{
			MTU:              p.KCP.MTU,
			TTI:              p.KCP.TTI,
			UplinkCapacity:   p.KCP.UplinkCapacity,
			DownlinkCapacity: p.KCP.DownlinkCapacity,
			Congestion:       p.KCP.Congestion,
			ReadBufferSize:   p.KCP.ReadBufferSize,
			WriteBufferSize:  p.KCP.WriteBufferSize,
			Header:           HeaderConfig{Type: strings.ToLower(p.PacketHeader)},
		}
	case profile.WebSocket:
		sc.WSSettings = &WebSocketSettings{
			Path:    p.NetworkPath,
			Headers: WebSocketHeaders{Host: p.ServerAddr},
		}
	case profile.HTTP:
		sc.HTTPSettings = &HTTPSettings{
			Host: []string{p.ServerAddr},
			Path: []string{p.NetworkPath},
		}
	case profile.DomainSocket:
		sc.DSSettings = &DomainSocketSettings{Path: p.DomainSocketFilePath}
	case profile.QUIC:
		sc.QUICSettings = &QUICSettings{
			Security: strings.ToLower(p.QUICSecurity),
			Key:      p.QUICKey,
			Header:   HeaderConfig{Type: strings.ToLower(p.PacketHeader)},
		}
	default:
		return sc, []Diagnostic{{
			Kind:    UnknownTransport,
			Field:   "network",
			Message: fmt.Sprintf("%q is not a supported transport, emitting shared stream settings only", p.Network),
		}}
	}

	return sc, nil
}

func (c *Compiler) buildTCP(p *profile.ServerProfile) *TCPSettings {
	headerType := strings.ToLower(p.TCPHeaderType)
	tcp := &TCPSettings{Type: headerType}
	if headerType == "http" {
		tcp.Request = c.requestMask()
		tcp.Response = responseMask()
	}
	return tcp
}
