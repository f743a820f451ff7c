package compiler

import (
	"strings"

	"v2desk/internal/profile"
)

func (c *Compiler) compileVMess(p *profile.ServerProfile) *CompiledConfig {
	stream, diags := c.buildStreamSettings(p)

	return &CompiledConfig{
		AutoConnect: p.AutoConnect,
		ServerName:  p.ServerName,
		Protocol:    string(profile.VMess),
		Settings: Settings{
			VNext: []VMessServer{{
				Address: p.ServerAddr,
				Port:    p.ServerPort,
				Users: []VMessUser{{
					ID:       p.ID,
					AlterID:  p.AlterID,
					Level:    p.Level,
					Security: strings.ToLower(p.Security),
				}},
			}},
		},
		StreamSettings: stream,
		Tag:            tagFor(profile.VMess),
		Diagnostics:    diags,
	}
}
