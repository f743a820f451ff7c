package geoip

import (
	"path/filepath"
	"testing"
)

func TestLookupWithoutDatabases(t *testing.T) {
	res := Lookup("1.1.1.1")
	if res.Country != "--" || res.ISP != "-" {
		t.Fatalf("Lookup = %+v", res)
	}
	if res := Lookup("example.com"); res.Country != "--" {
		t.Fatalf("host names must not be looked up: %+v", res)
	}
}

func TestInitMissingCountryDB(t *testing.T) {
	defer Close()
	if err := Init(filepath.Join(t.TempDir(), "missing.mmdb"), ""); err == nil {
		t.Fatalf("expected error for missing country database")
	}
	if err := Init("", filepath.Join(t.TempDir(), "missing.mmdb")); err != nil {
		t.Fatalf("missing ASN database should only warn: %v", err)
	}
}
