package xray

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"

	"v2desk/internal/compiler"
	"v2desk/internal/logger"

	"github.com/xtls/xray-core/core"
	"github.com/xtls/xray-core/infra/conf"

	// Import distro to register all protocols/transports
	_ "github.com/xtls/xray-core/main/distro/all"
)

// ErrNoOutbounds is returned when none of the given servers could be built.
var ErrNoOutbounds = errors.New("no usable outbounds")

// StartMultiEphemeral starts a single Xray instance exposing every server on
// its own random local socks port. The result maps server name to port.
func StartMultiEphemeral(configs []*compiler.CompiledConfig) (map[string]int, *core.Instance, error) {
	count := len(configs)
	if count == 0 {
		return nil, nil, fmt.Errorf("no servers provided")
	}

	ports, err := GetFreePorts(count)
	if err != nil {
		return nil, nil, err
	}

	return StartOnPorts(configs, ports)
}

// StartOnPorts starts Xray using a pre-defined set of ports.
// The length of configs must not exceed the length of ports.
func StartOnPorts(configs []*compiler.CompiledConfig, ports []int) (portMap map[string]int, instance *core.Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("CRITICAL: Xray Core Panic recovered: %v", r)
			err = fmt.Errorf("xray core panic: %v", r)
			if instance != nil {
				instance.Close()
				instance = nil
			}
		}
	}()

	if len(configs) > len(ports) {
		return nil, nil, fmt.Errorf("not enough ports provided: have %d, need %d", len(ports), len(configs))
	}

	var inbounds []conf.InboundDetourConfig
	var outbounds []conf.OutboundDetourConfig
	var rules []json.RawMessage

	nameToPort := make(map[string]int)
	validIndex := 0

	for _, cfg := range configs {
		outConfig, err := ToOutbound(cfg)
		if err != nil {
			logger.Log.Debugf("Skipping server: %v", err)
			continue
		}

		var buildErr error
		func() {
			restore := muteLogs()
			defer restore()
			_, buildErr = outConfig.Build()
		}()

		if buildErr != nil {
			logger.Log.Debugf("Skipping server %s: %v", cfg.ServerName, buildErr)
			continue
		}

		port := ports[validIndex]
		tagIn := fmt.Sprintf("in_%d", validIndex)
		tagOut := fmt.Sprintf("out_%d", validIndex)

		outConfig.Tag = tagOut
		outbounds = append(outbounds, *outConfig)
		inbounds = append(inbounds, socksInbound(tagIn, "127.0.0.1", port, true))
		rules = append(rules, routeRule(tagIn, tagOut))

		nameToPort[cfg.ServerName] = port
		validIndex++
	}

	if len(outbounds) == 0 {
		return nil, nil, ErrNoOutbounds
	}

	instance, err = startInstance(&conf.Config{
		LogConfig:       silentLog(),
		InboundConfigs:  inbounds,
		OutboundConfigs: outbounds,
		RouterConfig: &conf.RouterConfig{
			RuleList: rules,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return nameToPort, instance, nil
}

func startInstance(c *conf.Config) (*core.Instance, error) {
	pbConfig, err := c.Build()
	if err != nil {
		return nil, err
	}

	instance, err := core.New(pbConfig)
	if err != nil {
		return nil, err
	}

	if err := instance.Start(); err != nil {
		return nil, err
	}
	return instance, nil
}

func GetFreePorts(count int) ([]int, error) {
	var listeners []net.Listener
	var ports []int

	for i := 0; i < count; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return nil, fmt.Errorf("failed to allocate ports: %w", err)
		}
		listeners = append(listeners, l)
		ports = append(ports, l.Addr().(*net.TCPAddr).Port)
	}

	for _, l := range listeners {
		l.Close()
	}

	return ports, nil
}

func socksInbound(tag, listen string, port int, udp bool) conf.InboundDetourConfig {
	return conf.InboundDetourConfig{
		Tag:      tag,
		Protocol: "socks",
		PortList: &conf.PortList{Range: []conf.PortRange{{From: uint32(port), To: uint32(port)}}},
		Settings: toRawMessagePtr(fmt.Sprintf(`{"auth": "noauth", "udp": %t}`, udp)),
		ListenOn: toAddress(listen),
	}
}

func httpInbound(tag, listen string, port int) conf.InboundDetourConfig {
	return conf.InboundDetourConfig{
		Tag:      tag,
		Protocol: "http",
		PortList: &conf.PortList{Range: []conf.PortRange{{From: uint32(port), To: uint32(port)}}},
		Settings: toRawMessagePtr(`{}`),
		ListenOn: toAddress(listen),
	}
}

func routeRule(inboundTag, outboundTag string) json.RawMessage {
	ruleJSON, _ := json.Marshal(map[string]interface{}{
		"type":        "field",
		"inboundTag":  []string{inboundTag},
		"outboundTag": outboundTag,
	})
	return json.RawMessage(ruleJSON)
}

func silentLog() *conf.LogConfig {
	return &conf.LogConfig{
		LogLevel:  "none",
		AccessLog: "none",
		ErrorLog:  "none",
		DNSLog:    false,
	}
}

func toAddress(s string) *conf.Address {
	var addr conf.Address
	_ = json.Unmarshal([]byte(fmt.Sprintf("%q", s)), &addr)
	return &addr
}

func toRawMessagePtr(s string) *json.RawMessage {
	msg := json.RawMessage(s)
	return &msg
}

func muteLogs() func() {
	origStdout := os.Stdout
	origStderr := os.Stderr

	devNull, _ := os.Open(os.DevNull)
	if devNull != nil {
		os.Stdout = devNull
		os.Stderr = devNull
	}

	return func() {
		os.Stdout = origStdout
		os.Stderr = origStderr
		if devNull != nil {
			devNull.Close()
		}
	}
}
