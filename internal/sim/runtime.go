// Package sim runs the world: the clock, the bots, the event fanout and the
// background persistence.
//
// It wires together the long-running pieces around a World:
//
//  1. The tick loop advances the world clock every TickInterval.
//  2. The event dispatcher drains the world's event sink into the journal,
//     the metrics collector and the WebSocket broadcast.
//  3. The bot manager trades on its own schedule.
//  4. The invariant monitor checks conservation and aborts on violation.
//  5. The snapshot loop persists a world image for operators.
//
// Lifecycle: New() → Start() → [runs until SIGINT] → Stop()
package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"aiverse/internal/bots"
	"aiverse/internal/config"
	"aiverse/internal/journal"
	"aiverse/internal/metrics"
	"aiverse/internal/store"
	"aiverse/internal/world"
	"aiverse/pkg/types"
)

// invariantInterval is how often conservation is re-checked.
const invariantInterval = 5 * time.Second

// Runtime owns the lifecycle of every background goroutine around a World.
type Runtime struct {
	cfg     config.Config
	world   *world.World
	journal *journal.Journal
	snaps   *store.Store
	mx      *metrics.Collector
	bots    *bots.Manager // nil when disabled
	logger  *slog.Logger

	// events is the bounded dispatch queue between the world's sink and
	// the slow consumers. The sink side never blocks.
	events chan types.WorldEvent

	// broadcast pushes an event to WebSocket clients. Set before Start.
	broadcast func(types.WorldEvent)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the persistence layers and wires the world's event sink into
// the dispatch queue. The world should be bootstrapped after New so the
// seed events reach the journal.
func New(cfg config.Config, w *world.World, logger *slog.Logger) (*Runtime, error) {
	jr, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, err
	}

	snaps, err := store.Open(cfg.Snapshot.Path)
	if err != nil {
		jr.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Runtime{
		cfg:     cfg,
		world:   w,
		journal: jr,
		snaps:   snaps,
		mx:      metrics.GetCollector(),
		logger:  logger.With("component", "sim"),
		events:  make(chan types.WorldEvent, cfg.Events.Buffer),
		ctx:     ctx,
		cancel:  cancel,
	}

	if cfg.Bots.Enabled {
		r.bots = bots.NewManager(w, logger)
	}

	w.SetSink(r.enqueue)

	return r, nil
}

// SetBroadcast registers the WebSocket fanout. Must be called before Start.
func (r *Runtime) SetBroadcast(fn func(types.WorldEvent)) {
	r.broadcast = fn
}

// enqueue hands an event from the world to the dispatcher. It is called
// under the world lock and must never block; when the queue is full the
// event is dropped and counted.
func (r *Runtime) enqueue(ev types.WorldEvent) {
	select {
	case r.events <- ev:
	default:
		// Consumers can't keep up, drop the event.
		r.mx.RecordEventDropped()
	}
}

// Start launches all background goroutines.
func (r *Runtime) Start() {
	r.updateGauges()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.tickLoop()
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.dispatchEvents()
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.monitorInvariants()
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.snapshotLoop()
	}()

	if r.bots != nil {
		r.bots.Join()
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.bots.Run(r.ctx, r.cfg.Bots.Interval)
		}()
	}

	r.logger.Info("runtime started",
		"tick_interval", r.cfg.World.TickInterval,
		"bots", r.bots != nil,
	)
}

// Stop shuts down: cancels all goroutines, flushes whatever is still queued,
// writes a final snapshot, and closes the persistence layers.
func (r *Runtime) Stop() {
	r.logger.Info("shutting down...")

	r.cancel()
	r.wg.Wait()

	r.saveSnapshot()

	if err := r.journal.Close(); err != nil {
		r.logger.Error("journal close failed", "error", err)
	}
	r.snaps.Close()

	r.logger.Info("shutdown complete")
}

func (r *Runtime) tickLoop() {
	ticker := time.NewTicker(r.cfg.World.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			timer := metrics.NewTimer()
			tick := r.world.Tick()
			r.mx.RecordTick(tick, timer.ElapsedMs())
		}
	}
}

// dispatchEvents fans queued events out to the journal, the metrics
// collector and the WebSocket broadcast. On shutdown it flushes what is
// still buffered before returning.
func (r *Runtime) dispatchEvents() {
	for {
		select {
		case <-r.ctx.Done():
			r.drainEvents()
			return
		case ev := <-r.events:
			r.fanout(r.ctx, ev)
		}
	}
}

func (r *Runtime) drainEvents() {
	for {
		select {
		case ev := <-r.events:
			r.fanout(context.Background(), ev)
		default:
			return
		}
	}
}

func (r *Runtime) fanout(ctx context.Context, ev types.WorldEvent) {
	r.mx.ObserveEvent(ev)

	if err := r.journal.Record(ctx, ev); err != nil {
		r.logger.Error("journal write failed", "event_type", ev.Type, "error", err)
	}

	if r.broadcast != nil {
		r.broadcast(ev)
	}
}

// monitorInvariants re-checks conservation on a timer and refreshes the
// population gauges on the way. A violation means corrupted state; the
// process dies rather than keep trading on it.
func (r *Runtime) monitorInvariants() {
	ticker := time.NewTicker(invariantInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if err := r.world.CheckInvariants(); err != nil {
				r.logger.Error("invariant violation", "error", err)
				panic(err)
			}
			r.updateGauges()
		}
	}
}

func (r *Runtime) updateGauges() {
	var private, public, bankrupt int
	companies := r.world.Companies()
	for _, c := range companies {
		switch c.Status {
		case types.CompanyPublic:
			public++
		case types.CompanyBankrupt:
			bankrupt++
		default:
			private++
		}
		r.mx.SetMarket(c.Ticker, c.SharePrice.InexactFloat64(), c.MarketCap.InexactFloat64())
	}
	r.mx.UpdateWorldGauges(len(r.world.Agents()), private, public, bankrupt)
}

func (r *Runtime) snapshotLoop() {
	ticker := time.NewTicker(r.cfg.Snapshot.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.saveSnapshot()
		}
	}
}

func (r *Runtime) saveSnapshot() {
	st := r.world.State()
	snap := store.Snapshot{
		TakenAt:     time.Now().UTC(),
		Tick:        st.Tick,
		TotalTrades: st.TotalTrades,
		Agents:      r.world.Agents(),
		Companies:   r.world.Companies(),
	}
	if err := r.snaps.Save(snap); err != nil {
		r.logger.Error("snapshot failed", "error", err)
		return
	}
	r.logger.Debug("snapshot saved", "tick", snap.Tick, "agents", len(snap.Agents))
}
