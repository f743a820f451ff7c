// Package profile holds the typed form of a user-edited server profile and
// the coercion boundary that produces it from a loosely-typed document.
package profile

import "fmt"

// ServerProfile describes one remote proxy endpoint as the user entered it.
// Every field already carries its default; nothing downstream needs to know
// whether a key was present in the source document.
type ServerProfile struct {
	Protocol    Protocol
	ServerName  string
	ServerAddr  string
	ServerPort  uint16
	AutoConnect bool

	// VMess credentials
	ID       string
	AlterID  int
	Level    int
	Security string

	// Shadowsocks credentials
	Encryption string
	Password   string

	// Stream settings
	Network         Network
	NetworkSecurity string
	AllowInsecure   bool

	TCPHeaderType        string
	KCP                  KCPOptions
	PacketHeader         string // kcp and quic header obfuscation
	NetworkPath          string // ws and http path
	DomainSocketFilePath string
	QUICSecurity         string
	QUICKey              string

	// Issues collects values that could not be coerced and were replaced by
	// their defaults.
	Issues []Issue
}

type KCPOptions struct {
	MTU              int
	TTI              int
	UplinkCapacity   int
	DownlinkCapacity int
	Congestion       bool
	ReadBufferSize   int
	WriteBufferSize  int
}

// Issue records a field whose value was unusable.
type Issue struct {
	Field  string
	Value  interface{}
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s=%v: %s", i.Field, i.Value, i.Reason)
}
