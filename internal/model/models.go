package model

import (
	"time"
)

type Server struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// Connection Details (Entry Point)
	Protocol string
	Address  string
	Port     int

	// Profile is the editor document; Compiled is the outbound built from it.
	Profile  string
	Compiled string

	AutoConnect bool
	Connected   bool

	// Latency of the last probe in milliseconds, -1 when unreachable. LastProbed
	// is nil until the first probe.
	LatencyMs  int64
	LastProbed *time.Time
}
