// Package network tells the cache whether the remote data source can be reached.
package network

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vytor/lingoflash/internal/logger"
)

// Reachability is a snapshot-able connectivity signal.
type Reachability interface {
	Online() bool
}

// Static is a manually switched signal.
type Static struct {
	online atomic.Bool
}

func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

func (s *Static) Online() bool { return s.online.Load() }

func (s *Static) SetOnline(online bool) { s.online.Store(online) }

// Pinger is the probe target, normally the remote data source.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor probes a Pinger on a schedule and remembers the last result.
// Callbacks registered with OnReconnect run after every offline to online
// transition, the first successful probe included.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger

	online atomic.Bool

	mu          sync.Mutex
	onReconnect []func()
	scheduler   *gocron.Scheduler
}

type MonitorOption func(*Monitor)

// WithProbeTimeout bounds a single probe. Defaults to 5s.
func WithProbeTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.timeout = d }
}

func WithLogger(l *logger.Logger) MonitorOption {
	return func(m *Monitor) { m.log = l }
}

func NewMonitor(p Pinger, interval time.Duration, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		pinger:   p,
		interval: interval,
		timeout:  5 * time.Second,
		log:      logger.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithPrefix("network")
	return m
}

func (m *Monitor) Online() bool { return m.online.Load() }

// OnReconnect registers fn to run when connectivity comes back.
func (m *Monitor) OnReconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnect = append(m.onReconnect, fn)
}

// Probe pings once, records the outcome and returns it.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.pinger.Ping(ctx)
	online := err == nil
	was := m.online.Swap(online)

	switch {
	case online && !was:
		m.log.Info("remote reachable")
		m.mu.Lock()
		callbacks := append([]func(){}, m.onReconnect...)
		m.mu.Unlock()
		for _, fn := range callbacks {
			fn()
		}
	case !online && was:
		m.log.Warn("remote unreachable: %v", err)
	case !online:
		m.log.Debug("remote still unreachable: %v", err)
	}
	return online
}

// Start schedules probing every interval, beginning immediately.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler != nil {
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(m.interval).SingletonMode().Do(func() {
		m.Probe(context.Background())
	})
	if err != nil {
		return err
	}
	s.StartAsync()
	m.scheduler = s
	m.log.Info("probing remote every %v", m.interval)
	return nil
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler == nil {
		return
	}
	m.scheduler.Stop()
	m.scheduler = nil
}
