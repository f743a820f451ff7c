package geoip

import (
	"fmt"
	"net"
	"sync"

	"v2desk/internal/logger"

	"github.com/oschwald/geoip2-golang"
)

var (
	mu            sync.RWMutex
	asnReader     *geoip2.Reader
	countryReader *geoip2.Reader
)

// Init opens the MMDB files. Either path may be empty. A database that fails
// to open is logged and skipped so the server list still renders.
func Init(countryPath, asnPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if countryPath != "" && countryReader == nil {
		r, err := geoip2.Open(countryPath)
		if err != nil {
			return fmt.Errorf("failed to open Country DB at %s: %w", countryPath, err)
		}
		countryReader = r
	}

	if asnPath != "" && asnReader == nil {
		r, err := geoip2.Open(asnPath)
		if err != nil {
			logger.Log.Warnf("Failed to open ASN DB at %s: %v. ISP data will be missing.", asnPath, err)
		} else {
			asnReader = r
		}
	}
	return nil
}

type Result struct {
	Country string
	ISP     string
}

// Lookup annotates a server address. Host names are not resolved; only IP
// literals get a result.
func Lookup(host string) Result {
	res := Result{Country: "--", ISP: "-"}

	ip := net.ParseIP(host)
	if ip == nil {
		return res
	}

	mu.RLock()
	defer mu.RUnlock()

	if countryReader != nil {
		if c, err := countryReader.Country(ip); err == nil && c.Country.IsoCode != "" {
			res.Country = c.Country.IsoCode
		}
	}
	if asnReader != nil {
		if a, err := asnReader.ASN(ip); err == nil && a.AutonomousSystemOrganization != "" {
			res.ISP = a.AutonomousSystemOrganization
		}
	}
	return res
}

func Close() {
	mu.Lock()
	defer mu.Unlock()

	if asnReader != nil {
		asnReader.Close()
		asnReader = nil
	}
	if countryReader != nil {
		countryReader.Close()
		countryReader = nil
	}
}
