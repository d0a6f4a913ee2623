// Package simulator drives synthetic dashboard traffic through the state
// controller so a demo deployment has live data to show.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/product"
	"github.com/PolkaTrace/trace_layer/internal/app/state"
	"github.com/PolkaTrace/trace_layer/internal/app/system"
	"github.com/PolkaTrace/trace_layer/pkg/logger"
)

var _ system.Service = (*Simulator)(nil)

var sampleMetadata = []string{
	"Organic Coffee Beans - Colombian Estate - Batch #2024%03d",
	"Cold-Pressed Olive Oil - Crete Harvest - Lot %03d",
	"Single-Origin Cacao - Ecuador - Shipment %03d",
	"Alpaca Wool Textile - Peruvian Highlands - Roll %03d",
}

// Stats counts the operations the simulator has attempted.
type Stats struct {
	Registered int64 `json:"registered"`
	Events     int64 `json:"events"`
	Switches   int64 `json:"switches"`
	Failures   int64 `json:"failures"`
}

// Simulator is a lifecycle-managed traffic generator.
type Simulator struct {
	ctrl     *state.Controller
	log      *logger.Logger
	interval time.Duration
	rng      *rand.Rand

	registered atomic.Int64
	events     atomic.Int64
	switches   atomic.Int64
	failures   atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a simulator ticking on the given interval.
func New(ctrl *state.Controller, interval time.Duration, log *logger.Logger) *Simulator {
	if log == nil {
		log = logger.NewDefault("simulator")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Simulator{
		ctrl:     ctrl,
		log:      log,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) Name() string { return "traffic-simulator" }

// Stats returns a snapshot of the operation counters.
func (s *Simulator) Stats() Stats {
	return Stats{
		Registered: s.registered.Load(),
		Events:     s.events.Load(),
		Switches:   s.switches.Load(),
		Failures:   s.failures.Load(),
	}
}

func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.tick(runCtx)
			}
		}
	}()

	s.log.Info("traffic simulator started")
	return nil
}

func (s *Simulator) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.log.Info("traffic simulator stopped")
	return nil
}

// tick performs one scripted dashboard interaction.
func (s *Simulator) tick(ctx context.Context) {
	snap := s.ctrl.Current()

	if !snap.Connected {
		if err := s.ctrl.Connect(ctx); err != nil {
			s.failures.Add(1)
			s.log.WithError(err).Warn("simulated connect failed")
		}
		return
	}

	switch s.rng.Intn(4) {
	case 0:
		s.registerProduct(ctx)
	case 1, 2:
		s.logRandomEvent(ctx, snap)
	default:
		s.switchAccount(ctx, snap)
	}
}

func (s *Simulator) registerProduct(ctx context.Context) {
	metadata := s.randomMetadata()
	if _, err := s.ctrl.RegisterProduct(ctx, metadata); err != nil {
		s.failures.Add(1)
		return
	}
	s.registered.Add(1)
}

func (s *Simulator) logRandomEvent(ctx context.Context, snap state.Snapshot) {
	if snap.Selected == nil {
		return
	}
	owned, err := s.ctrl.ProductsByOwner(ctx, snap.Selected.Address)
	if err != nil || len(owned) == 0 {
		return
	}

	target := owned[s.rng.Intn(len(owned))]
	types := product.EventTypes()
	eventType := types[s.rng.Intn(len(types))]

	if _, err := s.ctrl.LogEvent(ctx, target.ID, eventType); err != nil {
		// Unauthorized accounts are part of the script; count and move on.
		s.failures.Add(1)
		return
	}
	s.events.Add(1)
}

func (s *Simulator) switchAccount(ctx context.Context, snap state.Snapshot) {
	if len(snap.Accounts) < 2 {
		return
	}
	next := snap.Accounts[s.rng.Intn(len(snap.Accounts))]
	if snap.Selected != nil && next.Address == snap.Selected.Address {
		return
	}
	if err := s.ctrl.SelectAccount(ctx, next.Address); err != nil {
		s.failures.Add(1)
		return
	}
	s.switches.Add(1)
}

func (s *Simulator) randomMetadata() string {
	pattern := sampleMetadata[s.rng.Intn(len(sampleMetadata))]
	return fmt.Sprintf(pattern, s.rng.Intn(1000))
}
