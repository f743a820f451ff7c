package compiler

import "encoding/json"

// CompiledConfig is the outbound document handed to the proxy core. Field
// order and JSON names are part of the wire contract.
type CompiledConfig struct {
	AutoConnect    bool           `json:"autoConnect"`
	ServerName     string         `json:"serverName"`
	Protocol       string         `json:"protocol"`
	Settings       Settings       `json:"settings"`
	StreamSettings StreamSettings `json:"streamSettings"`
	Tag            string         `json:"tag"`

	Diagnostics []Diagnostic `json:"-"`
}

// Settings holds exactly one protocol variant.
type Settings struct {
	VNext   []VMessServer       `json:"vnext,omitempty"`
	Servers []ShadowsocksServer `json:"servers,omitempty"`
}

type VMessServer struct {
	Address string      `json:"address"`
	Port    uint16      `json:"port"`
	Users   []VMessUser `json:"users"`
}

type VMessUser struct {
	ID       string `json:"id"`
	AlterID  int    `json:"alterId"`
	Level    int    `json:"level"`
	Security string `json:"security"`
}

type ShadowsocksServer struct {
	Address  string `json:"address"`
	Port     uint16 `json:"port"`
	Method   string `json:"method"`
	Password string `json:"password"`
}

// StreamSettings is the transport section. Security and TLSSettings are nil
// for protocols that pin the transport (shadowsocks), which keeps their
// section down to the network key alone.
type StreamSettings struct {
	Network     string       `json:"network"`
	Security    *string      `json:"security,omitempty"`
	TLSSettings *TLSSettings `json:"tlsSettings,omitempty"`

	TCPSettings  *TCPSettings          `json:"tcpSettings,omitempty"`
	KCPSettings  *KCPSettings          `json:"kcpSettings,omitempty"`
	WSSettings   *WebSocketSettings    `json:"wsSettings,omitempty"`
	HTTPSettings *HTTPSettings         `json:"httpSettings,omitempty"`
	DSSettings   *DomainSocketSettings `json:"dsSettings,omitempty"`
	QUICSettings *QUICSettings         `json:"quicSettings,omitempty"`
}

type TLSSettings struct {
	AllowInsecure bool `json:"allowInsecure"`
}

type TCPSettings struct {
	Type     string           `json:"type"`
	Request  *HTTPRequestMask  `json:"request,omitempty"`
	Response *HTTPResponseMask `json:"response,omitempty"`
}

type HTTPRequestMask struct {
	Version string             `json:"version"`
	Method  string             `json:"method"`
	Path    []string           `json:"path"`
	Headers HTTPRequestHeaders `json:"headers"`
}

type HTTPRequestHeaders struct {
	Host           []string `json:"host"`
	UserAgent      []string `json:"User-Agent"`
	AcceptEncoding []string `json:"Accept-Encoding"`
	Connection     []string `json:"Connection"`
	Pragma         string   `json:"Pragma"`
}

type HTTPResponseMask struct {
	Version string              `json:"version"`
	Status  string              `json:"status"`
	Reason  string              `json:"reason"`
	Headers HTTPResponseHeaders `json:"headers"`
}

type HTTPResponseHeaders struct {
	ContentType      []string `json:"Content-Type"`
	TransferEncoding []string `json:"Transfer-Encoding"`
	Connection       []string `json:"Connection"`
	Pragma           string   `json:"Pragma"`
}

type KCPSettings struct {
	MTU              int          `json:"mtu"`
	TTI              int          `json:"tti"`
	UplinkCapacity   int          `json:"uplinkCapacity"`
	DownlinkCapacity int          `json:"downlinkCapacity"`
	Congestion       bool         `json:"congestion"`
	ReadBufferSize   int          `json:"readBufferSize"`
	WriteBufferSize  int          `json:"writeBufferSize"`
	Header           HeaderConfig `json:"header"`
}

type HeaderConfig struct {
	Type string `json:"type"`
}

type WebSocketSettings struct {
	Path    string           `json:"path"`
	Headers WebSocketHeaders `json:"headers"`
}

type WebSocketHeaders struct {
	Host string `json:"host"`
}

type HTTPSettings struct {
	Host []string `json:"host"`
	Path []string `json:"path"`
}

type DomainSocketSettings struct {
	Path string `json:"path"`
}

type QUICSettings struct {
	Security string       `json:"security"`
	Key      string       `json:"key"`
	Header   HeaderConfig `json:"header"`
}

// JSON renders the document the way the core reads it.
func (c *CompiledConfig) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Degraded reports whether part of the document had to be dropped.
func (c *CompiledConfig) Degraded() bool {
	for _, d := range c.Diagnostics {
		if d.Kind == UnknownTransport {
			return true
		}
	}
	return false
}
