package compiler

import (
	"strings"

	"v2desk/internal/profile"
)

// Shadowsocks always runs over plain tcp; transport fields in the profile
// are ignored.
func compileShadowsocks(p *profile.ServerProfile) *CompiledConfig {
	return &CompiledConfig{
		AutoConnect: p.AutoConnect,
		ServerName:  p.ServerName,
		Protocol:    string(profile.Shadowsocks),
		Settings: Settings{
			Servers: []ShadowsocksServer{{
				Address:  p.ServerAddr,
				Port:     p.ServerPort,
				Method:   strings.ToLower(p.Encryption),
				Password: p.Password,
			}},
		},
		StreamSettings: StreamSettings{Network: string(profile.TCP)},
		Tag:            tagFor(profile.Shadowsocks),
	}
}
