package compiler

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"testing"

	"v2desk/internal/profile"
	"v2desk/internal/useragent"
)

var agentPattern = regexp.MustCompile(`^Mozilla/5\.0 \((Macintosh; Intel Mac OS X 10_15|X11; Linux x86_64|Windows NT 10\.0; Win64; x64)\) AppleWebKit/537\.36 \(KHTML, like Gecko\) Chrome/(5\d|6\d|7\d)\.0\.[1-4]\d{3}\.\d{1,2} Safari/537\.36$`)

func compileDoc(t *testing.T, doc string) (*CompiledConfig, map[string]interface{}) {
	t.Helper()
	c := NewWithAgents(useragent.NewSeeded(1))
	cfg, _, err := c.CompileDocument([]byte(doc))
	if err != nil {
		t.Fatalf("CompileDocument error: %v", err)
	}
	data, err := cfg.JSON()
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return cfg, out
}

func path(doc interface{}, keys ...string) interface{} {
	cur := doc
	for _, k := range keys {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

func TestCompileVMessWebSocketScenario(t *testing.T) {
	_, out := compileDoc(t, `{"protocol":"vmess","serverName":"A","serverAddr":"1.2.3.4","serverPort":"443","id":"u1","network":"ws","networkPath":"/ws","networkSecurity":"TLS"}`)

	if out["tag"] != "proxy-vmess" || out["protocol"] != "vmess" {
		t.Fatalf("tag/protocol = %v/%v", out["tag"], out["protocol"])
	}
	stream := out["streamSettings"].(map[string]interface{})
	if stream["network"] != "ws" || stream["security"] != "tls" {
		t.Fatalf("stream = %v", stream)
	}
	wantWS := map[string]interface{}{
		"path":    "/ws",
		"headers": map[string]interface{}{"host": "1.2.3.4"},
	}
	if !reflect.DeepEqual(stream["wsSettings"], wantWS) {
		t.Fatalf("wsSettings = %v, want %v", stream["wsSettings"], wantWS)
	}

	user := path(out, "settings").(map[string]interface{})["vnext"].([]interface{})[0].(map[string]interface{})
	if user["port"] != float64(443) || user["address"] != "1.2.3.4" {
		t.Fatalf("vnext = %v", user)
	}
	u := user["users"].([]interface{})[0].(map[string]interface{})
	if u["id"] != "u1" || u["alterId"] != float64(0) || u["level"] != float64(0) || u["security"] != "" {
		t.Fatalf("user = %v", u)
	}
}

func TestCompileShadowsocksScenario(t *testing.T) {
	_, out := compileDoc(t, `{"protocol":"shadowsocks","serverAddr":"5.6.7.8","serverPort":"8388","encryption":"AES-256-GCM","password":"p"}`)

	server := path(out, "settings").(map[string]interface{})["servers"].([]interface{})[0].(map[string]interface{})
	if server["method"] != "aes-256-gcm" || server["password"] != "p" || server["port"] != float64(8388) {
		t.Fatalf("server = %v", server)
	}
	if !reflect.DeepEqual(out["streamSettings"], map[string]interface{}{"network": "tcp"}) {
		t.Fatalf("streamSettings = %v", out["streamSettings"])
	}
	if out["tag"] != "proxy-shadowsocks" {
		t.Fatalf("tag = %v", out["tag"])
	}
}

func TestShadowsocksIgnoresTransportFields(t *testing.T) {
	for _, network := range []string{"ws", "kcp", "quic", "bogus"} {
		_, out := compileDoc(t, `{"protocol":"shadowsocks","network":"`+network+`","networkSecurity":"tls","networkPath":"/x","allowInsecure":true,"tcpHeaderType":"http"}`)
		if !reflect.DeepEqual(out["streamSettings"], map[string]interface{}{"network": "tcp"}) {
			t.Errorf("network %s: streamSettings = %v", network, out["streamSettings"])
		}
	}
}

func TestCompiledKeysAlwaysPresent(t *testing.T) {
	for _, proto := range []string{"vmess", "shadowsocks"} {
		_, out := compileDoc(t, `{"protocol":"`+proto+`"}`)
		for _, key := range []string{"autoConnect", "serverName", "protocol", "settings", "streamSettings", "tag"} {
			if _, ok := out[key]; !ok {
				t.Errorf("%s: missing key %s", proto, key)
			}
		}
	}
}

func TestPortCoercion(t *testing.T) {
	cfg, _ := compileDoc(t, `{"protocol":"shadowsocks","serverPort":"8388"}`)
	if cfg.Settings.Servers[0].Port != 8388 {
		t.Fatalf("port = %d", cfg.Settings.Servers[0].Port)
	}

	cfg, _ = compileDoc(t, `{"protocol":"shadowsocks","serverPort":"notanumber"}`)
	if cfg.Settings.Servers[0].Port != 0 {
		t.Fatalf("port = %d", cfg.Settings.Servers[0].Port)
	}
	if len(cfg.Diagnostics) != 1 || cfg.Diagnostics[0].Kind != CoercionFailure || cfg.Diagnostics[0].Field != "serverPort" {
		t.Fatalf("diagnostics = %v", cfg.Diagnostics)
	}
	if cfg.Degraded() {
		t.Fatalf("coercion alone must not mark the document degraded")
	}
}

func TestCaseNormalizationIsIdempotent(t *testing.T) {
	doc := `{"protocol":"vmess","security":"AES-128-GCM","networkSecurity":"TLS","network":"kcp","packetHeader":"WeChat-Video"}`
	first, _ := compileDoc(t, doc)

	user := first.Settings.VNext[0].Users[0]
	if user.Security != "aes-128-gcm" || *first.StreamSettings.Security != "tls" || first.StreamSettings.KCPSettings.Header.Type != "wechat-video" {
		t.Fatalf("not lower-cased: %+v %v %+v", user, *first.StreamSettings.Security, first.StreamSettings.KCPSettings)
	}

	again := `{"protocol":"vmess","security":"` + user.Security + `","networkSecurity":"` + *first.StreamSettings.Security +
		`","network":"kcp","packetHeader":"` + first.StreamSettings.KCPSettings.Header.Type + `"}`
	second, _ := compileDoc(t, again)
	if !reflect.DeepEqual(first.Settings, second.Settings) || !reflect.DeepEqual(first.StreamSettings, second.StreamSettings) {
		t.Fatalf("recompiling lower-cased output changed the result")
	}

	ss, _ := compileDoc(t, `{"protocol":"shadowsocks","encryption":"ChaCha20-IETF-Poly1305"}`)
	if ss.Settings.Servers[0].Method != "chacha20-ietf-poly1305" {
		t.Fatalf("method = %q", ss.Settings.Servers[0].Method)
	}
}

func TestTCPHTTPCamouflage(t *testing.T) {
	_, out := compileDoc(t, `{"protocol":"vmess","network":"tcp","tcpHeaderType":"HTTP"}`)

	tcp := path(out, "streamSettings", "tcpSettings").(map[string]interface{})
	if tcp["type"] != "http" {
		t.Fatalf("type = %v", tcp["type"])
	}

	req := tcp["request"].(map[string]interface{})
	if req["version"] != "1.1" || req["method"] != "GET" || !reflect.DeepEqual(req["path"], []interface{}{"/"}) {
		t.Fatalf("request = %v", req)
	}
	headers := req["headers"].(map[string]interface{})

	hosts := headers["host"].([]interface{})
	if len(hosts) != 12 {
		t.Fatalf("expected 12 hosts, got %d", len(hosts))
	}
	for i, h := range hosts {
		if h != CamouflageHosts[i] {
			t.Errorf("host[%d] = %v", i, h)
		}
	}

	agents := headers["User-Agent"].([]interface{})
	if len(agents) != 24 {
		t.Fatalf("expected 24 agents, got %d", len(agents))
	}
	for _, a := range agents {
		if !agentPattern.MatchString(a.(string)) {
			t.Errorf("bad agent %q", a)
		}
	}
	if headers["Pragma"] != "no-cache" || !reflect.DeepEqual(headers["Accept-Encoding"], []interface{}{"gzip, deflate"}) ||
		!reflect.DeepEqual(headers["Connection"], []interface{}{"keep-alive"}) {
		t.Fatalf("static request headers = %v", headers)
	}

	wantResp := map[string]interface{}{
		"version": "1.1",
		"status":  "200",
		"reason":  "OK",
		"headers": map[string]interface{}{
			"Content-Type":      []interface{}{"text/html;charset=utf-8"},
			"Transfer-Encoding": []interface{}{"chunked"},
			"Connection":        []interface{}{"keep-alive"},
			"Pragma":            "no-cache",
		},
	}
	if !reflect.DeepEqual(tcp["response"], wantResp) {
		t.Fatalf("response = %v", tcp["response"])
	}
}

func TestTCPWithoutHeader(t *testing.T) {
	_, out := compileDoc(t, `{"protocol":"vmess","network":"tcp","tcpHeaderType":"None"}`)
	want := map[string]interface{}{"type": "none"}
	if !reflect.DeepEqual(path(out, "streamSettings", "tcpSettings"), want) {
		t.Fatalf("tcpSettings = %v", path(out, "streamSettings", "tcpSettings"))
	}
}

func TestTransportSubObjects(t *testing.T) {
	cases := []struct {
		doc  string
		key  string
		want map[string]interface{}
	}{
		{
			doc: `{"protocol":"vmess","network":"kcp","kcpMtu":"1350","kcpTti":"50","kcpUpLink":"5","kcpDownLink":"20","kcpCongestion":true,"kcpReadBuffer":"2","kcpWriteBuffer":"x","packetHeader":"SRTP"}`,
			key: "kcpSettings",
			want: map[string]interface{}{
				"mtu": float64(1350), "tti": float64(50), "uplinkCapacity": float64(5), "downlinkCapacity": float64(20),
				"congestion": true, "readBufferSize": float64(2), "writeBufferSize": float64(0),
				"header": map[string]interface{}{"type": "srtp"},
			},
		},
		{
			doc:  `{"protocol":"vmess","network":"http","serverAddr":"h.example","networkPath":"/h2"}`,
			key:  "httpSettings",
			want: map[string]interface{}{"host": []interface{}{"h.example"}, "path": []interface{}{"/h2"}},
		},
		{
			doc:  `{"protocol":"vmess","network":"domainsocket","domainSocketFilePath":"/run/v2.sock"}`,
			key:  "dsSettings",
			want: map[string]interface{}{"path": "/run/v2.sock"},
		},
		{
			doc: `{"protocol":"vmess","network":"quic","quicSecurity":"AES-128-GCM","quicKey":"K","packetHeader":"DTLS"}`,
			key: "quicSettings",
			want: map[string]interface{}{
				"security": "aes-128-gcm", "key": "K", "header": map[string]interface{}{"type": "dtls"},
			},
		},
	}

	subKeys := []string{"tcpSettings", "kcpSettings", "wsSettings", "httpSettings", "dsSettings", "quicSettings"}

	for _, tc := range cases {
		_, out := compileDoc(t, tc.doc)
		stream := out["streamSettings"].(map[string]interface{})
		if !reflect.DeepEqual(stream[tc.key], tc.want) {
			t.Errorf("%s = %v, want %v", tc.key, stream[tc.key], tc.want)
		}
		for _, k := range subKeys {
			if _, ok := stream[k]; ok != (k == tc.key) {
				t.Errorf("%s: presence of %s = %v", tc.key, k, ok)
			}
		}
		if _, ok := stream["tlsSettings"]; !ok {
			t.Errorf("%s: tlsSettings missing", tc.key)
		}
	}
}

func TestUnknownTransportDegrades(t *testing.T) {
	cfg, out := compileDoc(t, `{"protocol":"vmess","network":"TCP","networkSecurity":"None","allowInsecure":"true"}`)

	want := map[string]interface{}{
		"network":     "TCP",
		"security":    "none",
		"tlsSettings": map[string]interface{}{"allowInsecure": true},
	}
	if !reflect.DeepEqual(out["streamSettings"], want) {
		t.Fatalf("streamSettings = %v", out["streamSettings"])
	}
	if !cfg.Degraded() {
		t.Fatalf("expected degraded document, diagnostics = %v", cfg.Diagnostics)
	}
}

func TestMissingNetworkDefaultsToTCP(t *testing.T) {
	cfg, _ := compileDoc(t, `{"protocol":"vmess"}`)
	if cfg.StreamSettings.Network != "tcp" || cfg.StreamSettings.TCPSettings == nil {
		t.Fatalf("stream = %+v", cfg.StreamSettings)
	}
}

func TestUnknownProtocol(t *testing.T) {
	c := New()
	_, _, err := c.CompileDocument([]byte(`{"protocol":"trojan"}`))
	if !errors.Is(err, ErrUnknownProtocol) {
		t.Fatalf("err = %v, want ErrUnknownProtocol", err)
	}
}

func TestMalformedInput(t *testing.T) {
	c := New()
	_, _, err := c.CompileDocument([]byte(`not: [valid`))
	if !errors.Is(err, profile.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestCompileConcurrent(t *testing.T) {
	c := New()
	p := &profile.ServerProfile{Protocol: profile.VMess, Network: profile.TCP, TCPHeaderType: "http"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, err := c.Compile(p)
			if err != nil {
				t.Errorf("Compile error: %v", err)
				return
			}
			if n := len(cfg.StreamSettings.TCPSettings.Request.Headers.UserAgent); n != AgentCount {
				t.Errorf("got %d agents", n)
			}
		}()
	}
	wg.Wait()
}

func TestCompileDoesNotShareCamouflageHosts(t *testing.T) {
	c := New()
	p := &profile.ServerProfile{Protocol: profile.VMess, Network: profile.TCP, TCPHeaderType: "http"}
	cfg, _ := c.Compile(p)
	cfg.StreamSettings.TCPSettings.Request.Headers.Host[0] = "mutated"
	if strings.Contains(CamouflageHosts[0], "mutated") {
		t.Fatalf("compiled document aliases the package host list")
	}
}
