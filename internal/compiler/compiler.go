// Package compiler turns a server profile into the outbound document the
// proxy core consumes. It does no I/O and keeps no state between calls.
package compiler

import (
	"errors"
	"fmt"

	"v2desk/internal/logger"
	"v2desk/internal/profile"
	"v2desk/internal/useragent"
)

// ErrUnknownProtocol is returned for a profile whose protocol has no builder.
var ErrUnknownProtocol = errors.New("unknown protocol")

// AgentSource supplies camouflage user agents.
type AgentSource interface {
	Generate(n int) []string
}

type Compiler struct {
	agents AgentSource
}

// New returns a Compiler using randomly generated user agents.
func New() *Compiler {
	return &Compiler{agents: useragent.New()}
}

// NewWithAgents returns a Compiler drawing user agents from src.
func NewWithAgents(src AgentSource) *Compiler {
	return &Compiler{agents: src}
}

// Compile builds the outbound document for p.
func (c *Compiler) Compile(p *profile.ServerProfile) (*CompiledConfig, error) {
	var cfg *CompiledConfig
	switch p.Protocol {
	case profile.VMess:
		cfg = c.compileVMess(p)
	case profile.Shadowsocks:
		cfg = compileShadowsocks(p)
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownProtocol, p.Protocol, profile.Protocols)
	}

	cfg.Diagnostics = append(issueDiagnostics(p.Issues), cfg.Diagnostics...)
	for _, d := range cfg.Diagnostics {
		if d.Kind == UnknownTransport {
			logger.Log.Warnf("Server [Name=%s]: %s", p.ServerName, d)
		}
	}
	return cfg, nil
}

// CompileDocument decodes a raw profile document and compiles it.
func (c *Compiler) CompileDocument(data []byte) (*CompiledConfig, *profile.ServerProfile, error) {
	p, err := profile.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := c.Compile(p)
	if err != nil {
		return nil, p, err
	}
	return cfg, p, nil
}

func tagFor(protocol profile.Protocol) string {
	return "proxy-" + string(protocol)
}
