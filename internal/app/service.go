// Package app wires the server store, the profile compiler, the running core
// and the latency prober behind the operations the CLI exposes.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"v2desk/internal/compiler"
	"v2desk/internal/logger"
	"v2desk/internal/model"
	"v2desk/internal/profile"

	"github.com/samber/lo"
)

var ErrNameRequired = errors.New("server name is required")

type Store interface {
	Get(ctx context.Context, name string) (*model.Server, error)
	List(ctx context.Context) ([]model.Server, error)
	Create(ctx context.Context, server *model.Server) error
	Replace(ctx context.Context, name string, server *model.Server) error
	Delete(ctx context.Context, name string) error
	SetConnected(ctx context.Context, name string, connected bool) error
	SetLatency(ctx context.Context, latency map[string]int64) error
}

type Supervisor interface {
	Restart(ctx context.Context, configs []*compiler.CompiledConfig) error
}

type Prober interface {
	Probe(ctx context.Context, configs []*compiler.CompiledConfig) (<-chan map[string]int64, error)
}

type Service struct {
	store      Store
	supervisor Supervisor
	prober     Prober
	compiler   *compiler.Compiler

	mu      sync.RWMutex
	latency map[string]int64
}

func New(store Store, supervisor Supervisor, prober Prober) *Service {
	return &Service{
		store:      store,
		supervisor: supervisor,
		prober:     prober,
		compiler:   compiler.New(),
		latency:    make(map[string]int64),
	}
}

// ServerSummary is one row of the server list.
type ServerSummary struct {
	Name        string
	Protocol    string
	Address     string
	Port        int
	AutoConnect bool
	Connected   bool
	Latency     int64
	HasLatency  bool
}

// AddServer compiles doc and stores it as a new server.
func (s *Service) AddServer(ctx context.Context, doc []byte) (*model.Server, error) {
	record, p, err := s.buildRecord(doc)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}
	logger.Log.Infof("Add new %s server [Name=%s, Addr=%s].", p.Protocol, p.ServerName, p.ServerAddr)
	return record, nil
}

// EditServer replaces the server called name. The new document may rename it.
func (s *Service) EditServer(ctx context.Context, name string, doc []byte) (*model.Server, error) {
	record, _, err := s.buildRecord(doc)
	if err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, name, record); err != nil {
		return nil, err
	}

	if record.Name != name {
		s.mu.Lock()
		if ms, ok := s.latency[name]; ok {
			s.latency[record.Name] = ms
			delete(s.latency, name)
		}
		s.mu.Unlock()
	}
	logger.Log.Infof("Server [Name=%s] has been edited.", name)

	return record, s.Restart(ctx)
}

func (s *Service) RemoveServer(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.latency, name)
	s.mu.Unlock()
	logger.Log.Infof("Server [Name=%s] has been removed.", name)

	return s.Restart(ctx)
}

func (s *Service) SetServerConnection(ctx context.Context, name string, connected bool) error {
	if err := s.store.SetConnected(ctx, name, connected); err != nil {
		return err
	}
	if err := s.Restart(ctx); err != nil {
		return err
	}
	if connected {
		logger.Log.Infof("Connected to %s", name)
	} else {
		logger.Log.Infof("Disconnected from %s", name)
	}
	return nil
}

// AutoConnect marks every server flagged autoConnect as connected and starts
// the core.
func (s *Service) AutoConnect(ctx context.Context) error {
	servers, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	for _, srv := range servers {
		if srv.AutoConnect && !srv.Connected {
			if err := s.store.SetConnected(ctx, srv.Name, true); err != nil {
				return err
			}
		}
	}
	return s.Restart(ctx)
}

// Servers lists every server with its connection flag and the most recent
// latency, preferring results from this process over persisted ones.
func (s *Service) Servers(ctx context.Context) ([]ServerSummary, error) {
	servers, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(servers, func(srv model.Server, _ int) ServerSummary {
		sum := ServerSummary{
			Name:        srv.Name,
			Protocol:    srv.Protocol,
			Address:     srv.Address,
			Port:        srv.Port,
			AutoConnect: srv.AutoConnect,
			Connected:   srv.Connected,
		}
		if ms, ok := s.latency[srv.Name]; ok {
			sum.Latency, sum.HasLatency = ms, true
		} else if srv.LastProbed != nil {
			sum.Latency, sum.HasLatency = srv.LatencyMs, true
		}
		return sum
	}), nil
}

// Server returns the stored editor document. When forDuplicate is set the
// name is dropped so the document can seed a new server.
func (s *Service) Server(ctx context.Context, name string, forDuplicate bool) (map[string]interface{}, error) {
	srv, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(srv.Profile), &doc); err != nil {
		return nil, fmt.Errorf("stored profile for %s is corrupt: %w", name, err)
	}
	if forDuplicate {
		delete(doc, "serverName")
	}
	return doc, nil
}

// Compiled returns the outbound document saved when the server was added or
// last edited. Rows without a usable saved document are rebuilt from their
// profile.
func (s *Service) Compiled(ctx context.Context, name string) (*compiler.CompiledConfig, error) {
	srv, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if srv.Compiled != "" {
		var cfg compiler.CompiledConfig
		if err := json.Unmarshal([]byte(srv.Compiled), &cfg); err == nil {
			return &cfg, nil
		}
		logger.Log.Warnf("Stored outbound for %s is corrupt, rebuilding from profile.", name)
	}
	return s.compileStored(srv)
}

// Profile returns the typed profile of one server.
func (s *Service) Profile(ctx context.Context, name string) (*profile.ServerProfile, error) {
	srv, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return profile.Decode([]byte(srv.Profile))
}

// ProbeLatency measures one server, or all of them when name is empty. The
// batch runs in the background; results are cached, persisted and then
// delivered on the returned channel.
func (s *Service) ProbeLatency(ctx context.Context, name string) (<-chan map[string]int64, error) {
	var servers []model.Server
	if name != "" {
		srv, err := s.store.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		servers = []model.Server{*srv}
	} else {
		all, err := s.store.List(ctx)
		if err != nil {
			return nil, err
		}
		servers = all
	}

	configs := s.compileAll(servers)
	results, err := s.prober.Probe(ctx, configs)
	if err != nil {
		return nil, err
	}

	out := make(chan map[string]int64, 1)
	go func() {
		defer close(out)
		latency, ok := <-results
		if !ok {
			return
		}

		s.mu.Lock()
		for k, v := range latency {
			s.latency[k] = v
		}
		s.mu.Unlock()

		if err := s.store.SetLatency(context.WithoutCancel(ctx), latency); err != nil {
			logger.Log.Warnf("Failed to save latency results: %v", err)
		}
		out <- latency
	}()
	return out, nil
}

// Restart hands the connected servers to the supervisor.
func (s *Service) Restart(ctx context.Context) error {
	servers, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	connected := lo.Filter(servers, func(srv model.Server, _ int) bool {
		return srv.Connected
	})
	return s.supervisor.Restart(ctx, s.compileAll(connected))
}

func (s *Service) buildRecord(doc []byte) (*model.Server, *profile.ServerProfile, error) {
	cfg, p, err := s.compiler.CompileDocument(doc)
	if err != nil {
		return nil, nil, err
	}
	if p.ServerName == "" {
		return nil, nil, ErrNameRequired
	}

	profileJSON, err := p.Encode()
	if err != nil {
		return nil, nil, err
	}
	compiledJSON, err := cfg.JSON()
	if err != nil {
		return nil, nil, err
	}

	return &model.Server{
		Name:        p.ServerName,
		Protocol:    string(p.Protocol),
		Address:     p.ServerAddr,
		Port:        int(p.ServerPort),
		Profile:     string(profileJSON),
		Compiled:    string(compiledJSON),
		AutoConnect: p.AutoConnect,
	}, p, nil
}

func (s *Service) compileStored(srv *model.Server) (*compiler.CompiledConfig, error) {
	p, err := profile.Decode([]byte(srv.Profile))
	if err != nil {
		return nil, err
	}
	return s.compiler.Compile(p)
}

// compileAll skips servers whose stored profile no longer compiles.
func (s *Service) compileAll(servers []model.Server) []*compiler.CompiledConfig {
	configs := make([]*compiler.CompiledConfig, 0, len(servers))
	for i := range servers {
		cfg, err := s.compileStored(&servers[i])
		if err != nil {
			logger.Log.Warnf("Skipping server %s: %v", servers[i].Name, err)
			continue
		}
		configs = append(configs, cfg)
	}
	return configs
}
