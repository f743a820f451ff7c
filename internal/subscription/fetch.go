// Package subscription downloads share-link lists from subscription URLs.
package subscription

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"v2desk/internal/links"
	"v2desk/internal/logger"
)

const defaultTimeout = 60 * time.Second

// Fetcher downloads a subscription, optionally through a local proxy such as
// the http inbound of a running core.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(proxyURL string) (*Fetcher, error) {
	client := &http.Client{Timeout: defaultTimeout}

	if proxyURL != "" {
		pURL, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(pURL)}
		logger.Log.Debugf("Subscription fetcher using proxy: %s", proxyURL)
	}
	return &Fetcher{client: client}, nil
}

// Fetch returns the distinct share links found at target.
func (f *Fetcher) Fetch(ctx context.Context, target string) ([]string, error) {
	logger.Log.Debugf("Fetching URL: %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return links.Extract(string(body)), nil
}
