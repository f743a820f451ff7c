package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Inbound  InboundConfig  `yaml:"inbound"`
	Core     CoreConfig     `yaml:"core"`
	Probe    ProbeConfig    `yaml:"probe"`
	GeoIP    GeoIPConfig    `yaml:"geoip"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// InboundConfig describes the local proxy ports the core listens on.
type InboundConfig struct {
	Listen    string `yaml:"listen"`
	SocksPort int    `yaml:"socks_port"`
	HTTPPort  int    `yaml:"http_port"`
	UDP       bool   `yaml:"udp"`
}

type CoreConfig struct {
	LogLevel string `yaml:"log_level"`
}

type ProbeConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Workers int           `yaml:"workers"`
}

// GeoIPConfig points at optional MaxMind databases used to annotate the
// server list. Empty paths disable the lookup.
type GeoIPConfig struct {
	CountryPath string `yaml:"country_path"`
	ASNPath     string `yaml:"asn_path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Database.Path = "v2desk.db"
	cfg.Inbound.Listen = "127.0.0.1"
	cfg.Inbound.SocksPort = 1080
	cfg.Inbound.HTTPPort = 8118
	cfg.Inbound.UDP = true
	cfg.Core.LogLevel = "warning"
	cfg.Probe.URL = "https://www.google.com/generate_204"
	cfg.Probe.Timeout = 5 * time.Second
	cfg.Probe.Workers = 20
	return &cfg
}

// Load reads path (config.yaml when empty). A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for name, port := range map[string]int{"socks_port": c.Inbound.SocksPort, "http_port": c.Inbound.HTTPPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("inbound.%s out of range: %d", name, port)
		}
	}
	if c.Inbound.SocksPort != 0 && c.Inbound.SocksPort == c.Inbound.HTTPPort {
		return fmt.Errorf("inbound socks_port and http_port must differ")
	}
	if c.Probe.Workers <= 0 {
		c.Probe.Workers = 20
	}
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = 5 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = "v2desk.db"
	}
	return nil
}
