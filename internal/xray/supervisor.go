package xray

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"v2desk/internal/compiler"
	"v2desk/internal/config"
	"v2desk/internal/logger"

	"github.com/xtls/xray-core/core"
	"github.com/xtls/xray-core/infra/conf"
)

// Supervisor owns the long-running core instance serving the local
// socks/http inbounds. The first connected server is the default route.
type Supervisor struct {
	mu       sync.Mutex
	inbound  config.InboundConfig
	logLevel string
	instance *core.Instance
}

func NewSupervisor(inbound config.InboundConfig, logLevel string) *Supervisor {
	return &Supervisor{inbound: inbound, logLevel: logLevel}
}

// Restart replaces the running instance with one routing through configs.
// With no configs the core is simply stopped. The new set is built before the
// old instance is closed, so a set that fails to build leaves the running
// core untouched.
func (s *Supervisor) Restart(ctx context.Context, configs []*compiler.CompiledConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(configs) == 0 {
		s.stopLocked()
		logger.Log.Info("No connected servers. Core stopped.")
		return nil
	}

	c, err := s.buildConfig(configs)
	if err != nil {
		return err
	}
	pbConfig, err := c.Build()
	if err != nil {
		return fmt.Errorf("failed to build core config: %w", err)
	}

	s.stopLocked()
	instance, err := core.New(pbConfig)
	if err != nil {
		return fmt.Errorf("failed to start core: %w", err)
	}
	if err := instance.Start(); err != nil {
		instance.Close()
		return fmt.Errorf("failed to start core: %w", err)
	}
	s.instance = instance
	logger.Log.Infof("Core running: socks %s:%d, http %s:%d, %d outbound(s)",
		s.inbound.Listen, s.inbound.SocksPort, s.inbound.Listen, s.inbound.HTTPPort, len(c.OutboundConfigs))
	return nil
}

func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance != nil
}

func (s *Supervisor) stopLocked() error {
	if s.instance == nil {
		return nil
	}
	err := s.instance.Close()
	s.instance = nil
	return err
}

func (s *Supervisor) buildConfig(configs []*compiler.CompiledConfig) (*conf.Config, error) {
	var outbounds []conf.OutboundDetourConfig
	seen := make(map[string]int)

	for _, cfg := range configs {
		out, err := ToOutbound(cfg)
		if err != nil {
			logger.Log.Warnf("Skipping server %s: %v", cfg.ServerName, err)
			continue
		}
		// Several servers of one protocol share a tag; keep them apart.
		tag := out.Tag
		if n := seen[tag]; n > 0 {
			out.Tag = fmt.Sprintf("%s-%d", tag, n)
		}
		seen[tag]++
		outbounds = append(outbounds, *out)
	}
	if len(outbounds) == 0 {
		return nil, ErrNoOutbounds
	}

	var inbounds []conf.InboundDetourConfig
	if s.inbound.SocksPort > 0 {
		inbounds = append(inbounds, socksInbound("socks-in", s.inbound.Listen, s.inbound.SocksPort, s.inbound.UDP))
	}
	if s.inbound.HTTPPort > 0 {
		inbounds = append(inbounds, httpInbound("http-in", s.inbound.Listen, s.inbound.HTTPPort))
	}

	return &conf.Config{
		LogConfig: &conf.LogConfig{
			LogLevel:  s.logLevel,
			AccessLog: "none",
		},
		InboundConfigs:  inbounds,
		OutboundConfigs: outbounds,
		RouterConfig:    &conf.RouterConfig{RuleList: []json.RawMessage{}},
	}, nil
}
