package xray

import (
	"encoding/json"
	"errors"
	"fmt"

	"v2desk/internal/compiler"

	"github.com/xtls/xray-core/infra/conf"
)

// ErrUnsupportedTransport is returned for transports the embedded core no
// longer ships (quic, http/2, domain sockets).
var ErrUnsupportedTransport = errors.New("transport not supported by embedded core")

// ToOutbound converts a compiled document into an Xray outbound config.
func ToOutbound(cfg *compiler.CompiledConfig) (*conf.OutboundDetourConfig, error) {
	settings, err := json.Marshal(cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	raw := json.RawMessage(settings)

	stream, err := buildStreamConfig(cfg.StreamSettings)
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", cfg.ServerName, err)
	}

	return &conf.OutboundDetourConfig{
		Tag:           cfg.Tag,
		Protocol:      cfg.Protocol,
		Settings:      &raw,
		StreamSetting: stream,
	}, nil
}

// Validate runs the converted outbound through the core's own builder.
func Validate(cfg *compiler.CompiledConfig) error {
	out, err := ToOutbound(cfg)
	if err != nil {
		return err
	}

	restore := muteLogs()
	defer restore()
	if _, err := out.Build(); err != nil {
		return fmt.Errorf("server %s rejected by core: %w", cfg.ServerName, err)
	}
	return nil
}

// buildStreamConfig reshapes stream settings into the layout the core reads:
// the tcp mask moves under "header" and zero kcp values are dropped so the
// core's defaults apply.
func buildStreamConfig(ss compiler.StreamSettings) (*conf.StreamConfig, error) {
	stream := map[string]interface{}{
		"network": ss.Network,
	}

	if ss.Security != nil && *ss.Security != "" && *ss.Security != "none" {
		stream["security"] = *ss.Security
		if ss.TLSSettings != nil {
			stream["tlsSettings"] = map[string]interface{}{
				"allowInsecure": ss.TLSSettings.AllowInsecure,
			}
		}
	}

	switch {
	case ss.TCPSettings != nil:
		if ss.TCPSettings.Type != "" {
			stream["tcpSettings"] = map[string]interface{}{"header": ss.TCPSettings}
		}
	case ss.KCPSettings != nil:
		stream["kcpSettings"] = kcpSettings(ss.KCPSettings)
	case ss.WSSettings != nil:
		stream["wsSettings"] = map[string]interface{}{
			"path": ss.WSSettings.Path,
			"host": ss.WSSettings.Headers.Host,
		}
	case ss.HTTPSettings != nil, ss.DSSettings != nil, ss.QUICSettings != nil:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTransport, ss.Network)
	default:
		if ss.Network != "tcp" {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, ss.Network)
		}
	}

	data, err := json.Marshal(stream)
	if err != nil {
		return nil, err
	}
	var sc conf.StreamConfig
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode stream settings: %w", err)
	}
	return &sc, nil
}

func kcpSettings(k *compiler.KCPSettings) map[string]interface{} {
	out := map[string]interface{}{
		"congestion": k.Congestion,
	}
	putPositive := func(key string, v int) {
		if v > 0 {
			out[key] = v
		}
	}
	putPositive("mtu", k.MTU)
	putPositive("tti", k.TTI)
	putPositive("uplinkCapacity", k.UplinkCapacity)
	putPositive("downlinkCapacity", k.DownlinkCapacity)
	putPositive("readBufferSize", k.ReadBufferSize)
	putPositive("writeBufferSize", k.WriteBufferSize)
	if k.Header.Type != "" {
		out["header"] = map[string]interface{}{"type": k.Header.Type}
	}
	return out
}
