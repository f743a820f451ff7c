package tester

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"v2desk/internal/compiler"
	"v2desk/internal/config"
	"v2desk/internal/logger"
	"v2desk/internal/metrics"
	"v2desk/internal/xray"

	"golang.org/x/net/proxy"
)

// Unreachable is the latency reported for servers that failed the probe.
const Unreachable int64 = -1

var ErrProbeInFlight = errors.New("a latency probe is already running")

type launcher func(configs []*compiler.CompiledConfig) (map[string]int, io.Closer, error)

type measurer func(ctx context.Context, port int) (time.Duration, error)

// Prober measures round-trip latency through each server. Only one batch
// runs at a time.
type Prober struct {
	cfg     config.ProbeConfig
	busy    atomic.Bool
	launch  launcher
	measure measurer

	mu       sync.Mutex
	onResult func(name string, latencyMs int64)
	metrics  *metrics.Collector
}

func New(cfg config.ProbeConfig) *Prober {
	p := &Prober{cfg: cfg, metrics: metrics.New()}
	p.launch = func(configs []*compiler.CompiledConfig) (map[string]int, io.Closer, error) {
		return xray.StartMultiEphemeral(configs)
	}
	p.measure = p.httpLatency
	return p
}

// OnResult registers fn to be called as each server finishes.
func (p *Prober) OnResult(fn func(name string, latencyMs int64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResult = fn
}

// Metrics returns the collector of the most recent batch.
func (p *Prober) Metrics() *metrics.Collector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// Probe starts a batch in the background and delivers {serverName -> ms} on
// the returned channel. It fails with ErrProbeInFlight while another batch
// is still running.
func (p *Prober) Probe(ctx context.Context, configs []*compiler.CompiledConfig) (<-chan map[string]int64, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrProbeInFlight
	}

	out := make(chan map[string]int64, 1)
	go func() {
		defer close(out)
		result := p.run(ctx, configs)
		p.busy.Store(false)
		out <- result
	}()
	return out, nil
}

func (p *Prober) run(ctx context.Context, configs []*compiler.CompiledConfig) map[string]int64 {
	mc := metrics.New()
	p.mu.Lock()
	p.metrics = mc
	notify := p.onResult
	p.mu.Unlock()

	result := make(map[string]int64, len(configs))
	if len(configs) == 0 {
		return result
	}

	var resultLock sync.Mutex
	record := func(name string, ms int64) {
		resultLock.Lock()
		result[name] = ms
		resultLock.Unlock()
		if notify != nil {
			notify(name, ms)
		}
	}

	portMap, instance, err := p.launch(configs)
	if err != nil {
		logger.Log.Warnf("Latency probe: failed to start batch: %v", err)
		for _, c := range configs {
			mc.RecordFailure(err)
			record(c.ServerName, Unreachable)
		}
		return result
	}
	defer instance.Close()

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, c := range configs {
		port, ok := portMap[c.ServerName]
		if !ok {
			mc.RecordFailure(fmt.Errorf("server %s could not be started", c.ServerName))
			record(c.ServerName, Unreachable)
			continue
		}

		wg.Add(1)
		go func(name string, localPort int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
			defer cancel()

			d, err := p.measure(reqCtx, localPort)
			if err != nil {
				logger.Log.Debugf("Latency probe: %s unreachable: %v", name, err)
				mc.RecordFailure(err)
				record(name, Unreachable)
				return
			}
			mc.RecordSuccess(d)
			record(name, max(d.Milliseconds(), 1))
		}(c.ServerName, port)
	}
	wg.Wait()

	return result
}

// httpLatency times a GET of the probe URL through the local socks port.
func (p *Prober) httpLatency(ctx context.Context, port int) (time.Duration, error) {
	dialer, err := proxy.SOCKS5("tcp", fmt.Sprintf("127.0.0.1:%d", port), nil, &net.Dialer{Timeout: p.cfg.Timeout})
	if err != nil {
		return 0, err
	}
	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return 0, fmt.Errorf("socks dialer does not support contexts")
	}

	client := &http.Client{
		Transport: &http.Transport{
			DialContext:           contextDialer.DialContext,
			ResponseHeaderTimeout: p.cfg.Timeout,
			DisableKeepAlives:     true,
		},
		Timeout: p.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return 0, fmt.Errorf("probe failed with status: %d", resp.StatusCode)
	}
	return elapsed, nil
}
