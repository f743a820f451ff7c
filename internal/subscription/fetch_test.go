package subscription

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch(t *testing.T) {
	body := "ss://YWVzLTI1Ni1nY206c2VjcmV0@1.2.3.4:8388#a\nss://YWVzLTI1Ni1nY206c2VjcmV0@5.6.7.8:8388#b\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(base64.StdEncoding.EncodeToString([]byte(body))))
	}))
	defer srv.Close()

	f, err := NewFetcher("")
	if err != nil {
		t.Fatalf("NewFetcher error: %v", err)
	}

	got, err := f.Fetch(context.Background(), srv.URL+"/sub")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("links = %v", got)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestNewFetcherRejectsBadProxy(t *testing.T) {
	if _, err := NewFetcher("://bad"); err == nil {
		t.Fatalf("expected error for bad proxy url")
	}
}
