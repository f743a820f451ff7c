package profile

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeVMessJSON(t *testing.T) {
	data := `{
		"protocol": "vmess",
		"serverName": "A",
		"serverAddr": "1.2.3.4",
		"serverPort": "443",
		"id": "u1",
		"alterId": "64",
		"level": 2,
		"security": "AES-128-GCM",
		"network": "ws",
		"networkPath": "/ws",
		"networkSecurity": "TLS",
		"allowInsecure": true,
		"autoConnect": "true"
	}`

	p, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if p.Protocol != VMess || !p.Protocol.Known() {
		t.Fatalf("protocol = %q", p.Protocol)
	}
	if p.ServerPort != 443 {
		t.Errorf("port = %d, want 443", p.ServerPort)
	}
	if p.AlterID != 64 || p.Level != 2 {
		t.Errorf("alterId/level = %d/%d", p.AlterID, p.Level)
	}
	if p.Network != WebSocket {
		t.Errorf("network = %q", p.Network)
	}
	if !p.AllowInsecure || !p.AutoConnect {
		t.Errorf("booleans not decoded: insecure=%v auto=%v", p.AllowInsecure, p.AutoConnect)
	}
	if len(p.Issues) != 0 {
		t.Errorf("unexpected issues: %v", p.Issues)
	}
}

func TestDecodeYAML(t *testing.T) {
	data := `
protocol: shadowsocks
serverAddr: 5.6.7.8
serverPort: 8388
encryption: AES-256-GCM
password: p
`
	p, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if p.Protocol != Shadowsocks || p.ServerPort != 8388 || p.Encryption != "AES-256-GCM" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestDecodeDefaults(t *testing.T) {
	p, err := Decode([]byte(`{"protocol":"vmess"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if p.Network != TCP {
		t.Errorf("network default = %q, want tcp", p.Network)
	}
	if p.ServerPort != 0 || p.AlterID != 0 || p.Level != 0 || p.Security != "" || p.AllowInsecure {
		t.Errorf("defaults not applied: %+v", p)
	}
	if len(p.Issues) != 0 {
		t.Errorf("missing fields must not raise issues: %v", p.Issues)
	}
}

func TestDecodeCoercionFailures(t *testing.T) {
	data := `{
		"serverPort": "notanumber",
		"alterId": -4,
		"level": 1.5,
		"kcpMtu": "70000000000",
		"allowInsecure": "sometimes",
		"id": {"nested": true}
	}`
	p, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if p.ServerPort != 0 || p.AlterID != 0 || p.Level != 0 || p.KCP.MTU != 0 || p.AllowInsecure || p.ID != "" {
		t.Fatalf("bad values were not replaced by defaults: %+v", p)
	}

	fields := map[string]bool{}
	for _, issue := range p.Issues {
		fields[issue.Field] = true
	}
	for _, want := range []string{"serverPort", "alterId", "level", "kcpMtu", "allowInsecure", "id"} {
		if !fields[want] {
			t.Errorf("expected issue for %s, got %v", want, p.Issues)
		}
	}
}

func TestDecodePortRange(t *testing.T) {
	p, err := Decode([]byte(`{"serverPort": "65536"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if p.ServerPort != 0 || len(p.Issues) != 1 {
		t.Fatalf("port=%d issues=%v", p.ServerPort, p.Issues)
	}

	p, _ = Decode([]byte(`{"serverPort": " 65535 "}`))
	if p.ServerPort != 65535 {
		t.Fatalf("port=%d, want 65535", p.ServerPort)
	}
}

func TestDecodeKeepsUnknownNetworkVerbatim(t *testing.T) {
	p, err := Decode([]byte(`{"network": "TCP"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if p.Network != "TCP" || p.Network.Known() {
		t.Fatalf("network = %q known=%v", p.Network, p.Network.Known())
	}
}

func TestDecodeAcceptsStrictJSON(t *testing.T) {
	p, err := Decode([]byte(`{"protocol":"vmess","serverName":"a\/b","serverPort":"443","network":"ws","networkPath":"\/ray"}`))
	if err != nil {
		t.Fatalf("Decode with escaped slash error: %v", err)
	}
	if p.ServerName != "a/b" || p.NetworkPath != "/ray" || p.ServerPort != 443 {
		t.Fatalf("escaped slashes not decoded: %+v", p)
	}

	p, err = Decode([]byte(`{"serverName":"x","serverName":"y"}`))
	if err != nil {
		t.Fatalf("Decode with repeated key error: %v", err)
	}
	if p.ServerName != "y" {
		t.Fatalf("serverName = %q, want last value y", p.ServerName)
	}

	p, err = Decode([]byte(`{"serverPort": 443.0, "alterId": 1e1}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if p.ServerPort != 443 || p.AlterID != 10 || len(p.Issues) != 0 {
		t.Fatalf("integral numbers not accepted: port=%d alterId=%d issues=%v", p.ServerPort, p.AlterID, p.Issues)
	}
}

func TestDecodeYAMLFlowMapping(t *testing.T) {
	p, err := Decode([]byte(`{protocol: shadowsocks, serverName: flow, serverPort: 8388}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if p.Protocol != Shadowsocks || p.ServerName != "flow" || p.ServerPort != 8388 {
		t.Fatalf("flow mapping not decoded: %+v", p)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, input := range []string{``, `[1,2,3]`, `"just a string"`, `{"serverName": `} {
		if _, err := Decode([]byte(input)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformed", input, err)
		}
	}
}

func TestParseProtocol(t *testing.T) {
	if ParseProtocol(" VMess ") != VMess {
		t.Errorf("vmess not normalized")
	}
	if p := ParseProtocol("trojan"); p.Known() {
		t.Errorf("trojan should be unknown")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	orig := &ServerProfile{
		Protocol:        VMess,
		ServerName:      "kcp-node",
		ServerAddr:      "example.org",
		ServerPort:      10086,
		AutoConnect:     true,
		ID:              "b831381d-6324-4d53-ad4f-8cda48b30811",
		AlterID:         4,
		Security:        "auto",
		Network:         KCP,
		NetworkSecurity: "none",
		KCP: KCPOptions{
			MTU:             1350,
			TTI:             20,
			UplinkCapacity:  5,
			Congestion:      true,
			ReadBufferSize:  2,
			WriteBufferSize: 2,
		},
		PacketHeader: "wechat-video",
	}

	data, err := orig.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	decoded.Issues = nil

	if !reflect.DeepEqual(orig, decoded) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, orig)
	}
}
