package profile

import "strings"

// Protocol is the proxy protocol a profile speaks.
type Protocol string

const (
	VMess       Protocol = "vmess"
	Shadowsocks Protocol = "shadowsocks"
)

// Protocols lists every protocol the compiler can build.
var Protocols = []Protocol{VMess, Shadowsocks}

// ParseProtocol normalizes s. Unknown names are returned as-is (lower-cased)
// and report false from Known.
func ParseProtocol(s string) Protocol {
	return Protocol(strings.ToLower(strings.TrimSpace(s)))
}

func (p Protocol) Known() bool {
	switch p {
	case VMess, Shadowsocks:
		return true
	}
	return false
}

// Network is the transport carrying the proxy stream. The value keeps the
// casing the user typed; only exact canonical spellings are Known.
type Network string

const (
	TCP          Network = "tcp"
	KCP          Network = "kcp"
	WebSocket    Network = "ws"
	HTTP         Network = "http"
	DomainSocket Network = "domainsocket"
	QUIC         Network = "quic"
)

// Networks lists every transport in canonical spelling.
var Networks = []Network{TCP, KCP, WebSocket, HTTP, DomainSocket, QUIC}

func (n Network) Known() bool {
	switch n {
	case TCP, KCP, WebSocket, HTTP, DomainSocket, QUIC:
		return true
	}
	return false
}
