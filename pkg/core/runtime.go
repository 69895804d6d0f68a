package core

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/obinexus/polycall-core/internal/corectx"
	"github.com/obinexus/polycall-core/internal/ffi"
	"github.com/obinexus/polycall-core/internal/logger"
	"github.com/obinexus/polycall-core/internal/memory"
	"github.com/obinexus/polycall-core/internal/perf"
	"github.com/obinexus/polycall-core/internal/pubsub"
	"github.com/obinexus/polycall-core/internal/registry"
	"github.com/obinexus/polycall-core/internal/session"
	"github.com/obinexus/polycall-core/pkg/config"
)

// Runtime wires every component (C1-C10) behind one TCP listener: each
// accepted connection gets its own session FSM (C6) and wire dispatcher
// (C5), sharing the runtime's FFI registry (C3), memory bridge (C2),
// pub/sub context (C7), performance manager (C10), and service registry
// (C8) (teacher idiom: `internal/protocol/portmap/server.go`'s
// listener/accept-loop/shutdown-channel shape, generalized from one RPC
// program to the full C1-C10 wire protocol).
type Runtime struct {
	cfg *config.Config

	Services *registry.Registry
	Memory   *memory.Bridge
	FFI      *ffi.Registry
	PubSub   *pubsub.Context
	Perf     *perf.Manager
	verifier *session.TokenVerifier

	listener     net.Listener
	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// JWTSecret and JWTIssuer configure the TokenVerifier consulted during a
// connection's AUTH transition. They are not part of pkg/config because
// they are a secret, not a tunable.
type Options struct {
	JWTSecret string
	JWTIssuer string
	Registry  prometheus.Registerer
}

// NewRuntime constructs a Runtime from a loaded configuration, building
// the memory bridge, FFI registry, pub/sub context, and performance
// manager, and registering each into the service registry (C8) under a
// well-known name so collaborators constructed later (bridges, CLI
// commands) can look them up without a constructor-order dependency.
func NewRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	verifier, err := session.NewTokenVerifier(opts.JWTSecret, opts.JWTIssuer)
	if err != nil {
		return nil, err
	}

	ttl, err := time.ParseDuration(cfg.Core.CallCacheTTL)
	if err != nil {
		return nil, corectx.NewWithCause("core", corectx.CodeInvalidParameter, "invalid call_cache_ttl", err)
	}

	perfManager := perf.NewManager(perf.Config{
		CallCacheTTL:   ttl,
		TraceRingSize:  cfg.Core.TraceRingSize,
		TracingEnabled: cfg.Core.TracingEnabled,
	}, opts.Registry)

	isolation := ffi.IsolationLevel(cfg.Core.IsolationLevel)
	ffiRegistry := ffi.NewRegistry(ffi.Config{
		IsolationLevel: isolation,
		StrictTypes:    cfg.Core.StrictTypes,
	}, nil, perfManager)

	memBridge := memory.New(uint32(cfg.Core.MemoryPoolSize.Uint64()))

	pubsubCtx := pubsub.New(pubsub.Config{
		MaxSubscriptions:       cfg.Core.MaxSubscriptions,
		MaxSubscribersPerTopic: cfg.Core.MaxSubscribersPerTopic,
		EnableWildcards:        cfg.Core.EnableWildcards,
		CaseSensitive:          cfg.Core.CaseSensitive,
	})

	services := registry.New()
	services.Register("memory", memBridge)
	services.Register("ffi", ffiRegistry)
	services.Register("pubsub", pubsubCtx)
	services.Register("perf", perfManager)

	return &Runtime{
		cfg:      cfg,
		Services: services,
		Memory:   memBridge,
		FFI:      ffiRegistry,
		PubSub:   pubsubCtx,
		Perf:     perfManager,
		verifier: verifier,
		shutdown: make(chan struct{}),
		sessions: make(map[string]*session.Session),
	}, nil
}

// ListenAndServe opens the configured TCP listener and accepts connections
// until ctx is cancelled or Shutdown is called. It blocks.
func (r *Runtime) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.cfg.Core.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.cfg.Core.ListenAddr, err)
	}
	r.listener = ln
	logger.Info("runtime listening", "address", r.cfg.Core.ListenAddr)

	go func() {
		select {
		case <-ctx.Done():
			r.Shutdown()
		case <-r.shutdown:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-r.shutdown:
				r.wg.Wait()
				return nil
			default:
				logger.Warn("accept failed", logger.Err(err))
				continue
			}
		}
		r.wg.Add(1)
		go func(c net.Conn) {
			defer r.wg.Done()
			r.handleConn(ctx, c)
		}(conn)
	}
}

// Shutdown closes the listener and stops accepting new connections.
// In-flight connections run to completion.
func (r *Runtime) Shutdown() {
	r.shutdownOnce.Do(func() {
		close(r.shutdown)
		if r.listener != nil {
			_ = r.listener.Close()
		}
	})
}

func (r *Runtime) registerSession(s *session.Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
}

func (r *Runtime) unregisterSession(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// SessionCount returns the number of live connections, for health checks.
func (r *Runtime) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
