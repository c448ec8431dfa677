package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/beestat-bridge/internal/beestat"
	"github.com/nerrad567/beestat-bridge/internal/thermostat"
)

// Interval bounds for polling.
const (
	// MinInterval is the shortest allowed poll interval.
	MinInterval = time.Minute

	// DefaultInterval is used when Options.Interval is zero.
	DefaultInterval = 5 * time.Minute
)

// Logger is the structured logger used by the coordinator.
// *slog.Logger and *logging.Logger satisfy it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures a Coordinator.
type Options struct {
	// Client performs the thermostat.read call. Required.
	Client beestat.Caller

	// Interval between polls. Defaults to DefaultInterval.
	Interval time.Duration

	// Clock defaults to SystemClock.
	Clock Clock

	// Logger is optional.
	Logger Logger
}

// fetchResult is delivered from the fetch worker to the loop.
type fetchResult struct {
	gen     uint64
	trigger Trigger
	started time.Time
	raw     []byte
	err     error
}

// Coordinator owns the poll schedule and the cached snapshot.
//
// A single loop goroutine performs every state transition. The network call
// runs in a worker goroutine and its result is handed back to the loop,
// which normalizes, diffs, caches and publishes it. At most one fetch is in
// flight; ticks that arrive during a fetch are dropped.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - Subscribers are called from the loop goroutine and must not block.
type Coordinator struct {
	clock  Clock
	logger Logger

	snapshot atomic.Pointer[thermostat.Snapshot]
	state    atomic.Int32

	mu          sync.RWMutex
	client      beestat.Caller
	interval    time.Duration
	lastErr     error
	lastAttempt time.Time
	listeners   map[int]func(Update)
	nextID      int

	// Latest-wins command slots drained by the loop.
	refreshCh     chan Trigger
	intervalCh    chan time.Duration
	reconfigureCh chan beestat.Caller
	results       chan fetchResult

	// Loop-owned.
	ticker      Ticker
	gen         uint64
	inFlight    bool
	cancelFetch context.CancelFunc

	ctx       context.Context
	cancel    context.CancelFunc
	started   atomic.Bool
	stopped   atomic.Bool
	stopOnce  sync.Once
	done      chan struct{}
	workersWG sync.WaitGroup
}

// New creates a coordinator. Call Start to perform the first refresh and
// begin polling.
func New(opts Options) (*Coordinator, error) {
	if opts.Client == nil {
		return nil, ErrNoClient
	}
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < MinInterval {
		return nil, fmt.Errorf("%w: %v < %v", ErrIntervalTooShort, interval, MinInterval)
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	return &Coordinator{
		clock:         clock,
		logger:        opts.Logger,
		client:        opts.Client,
		interval:      interval,
		listeners:     make(map[int]func(Update)),
		refreshCh:     make(chan Trigger, 1),
		intervalCh:    make(chan time.Duration, 1),
		reconfigureCh: make(chan beestat.Caller, 1),
		results:       make(chan fetchResult),
		done:          make(chan struct{}),
	}, nil
}

// Start performs the first refresh synchronously, then starts the poll loop.
//
// An authentication failure leaves the coordinator Halted and is returned
// wrapped in ErrHalted so setup can be reported as failed; the loop still
// runs so that Reconfigure can resume it. Any other failure leaves the
// coordinator Unavailable and is not returned: the next tick retries.
//
// The caller must call Stop once Start has been called.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.stopped.Load() {
		return ErrNotRunning
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))

	c.mu.RLock()
	client, interval := c.client, c.interval
	c.mu.RUnlock()

	// Startup fetch is bound to the caller's ctx so setup can be aborted.
	c.setState(StateFetching)
	started := c.clock.Now()
	fetchCtx, cancel := context.WithCancel(c.ctx)
	stopAbort := context.AfterFunc(ctx, cancel)
	raw, err := client.Call(fetchCtx, "thermostat", "read", nil)
	stopAbort()
	cancel()

	c.ticker = c.clock.NewTicker(interval)
	c.handleResult(fetchResult{trigger: TriggerStartup, started: started, raw: raw, err: err})

	go c.loop()

	if c.State() == StateHalted {
		return fmt.Errorf("%w: %w", ErrHalted, err)
	}
	return nil
}

// Stop cancels any in-flight fetch and the timer, and waits for the loop to
// exit. Nothing is published after Stop returns. Safe to call more than once,
// but not concurrently with Start.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		if !c.started.Load() {
			close(c.done)
			return
		}
		c.cancel()
		<-c.done
		c.workersWG.Wait()
	})
}

// Done is closed once the loop has exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// RequestRefresh asks for an immediate fetch. It is skipped if a fetch is
// already in flight or polling is halted, exactly like a tick.
func (c *Coordinator) RequestRefresh() {
	sendLatest(c.refreshCh, TriggerRefresh)
}

// SetInterval reschedules polling. Neither state nor cached snapshot change.
//
// Returns:
//   - error: ErrIntervalTooShort if d < MinInterval
func (c *Coordinator) SetInterval(d time.Duration) error {
	if d < MinInterval {
		return fmt.Errorf("%w: %v < %v", ErrIntervalTooShort, d, MinInterval)
	}
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()

	if c.started.Load() {
		sendLatest(c.intervalCh, d)
	}
	return nil
}

// Interval returns the configured poll interval.
func (c *Coordinator) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interval
}

// Reconfigure replaces the client (typically after an API key change),
// cancels any in-flight fetch, clears a halt and fetches immediately.
func (c *Coordinator) Reconfigure(client beestat.Caller) error {
	if client == nil {
		return ErrNoClient
	}
	if !c.started.Load() || c.stopped.Load() {
		return ErrNotRunning
	}
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	sendLatest(c.reconfigureCh, client)
	return nil
}

// Subscribe registers fn to receive every Update. The returned function
// unregisters it. fn runs on the loop goroutine and must return quickly.
func (c *Coordinator) Subscribe(fn func(Update)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Snapshot returns the cached snapshot, or nil before the first attempt
// completes. The returned snapshot is immutable.
func (c *Coordinator) Snapshot() *thermostat.Snapshot {
	return c.snapshot.Load()
}

// Err returns the failure of the last attempt, or nil.
func (c *Coordinator) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Status summarizes the coordinator for health reporting.
func (c *Coordinator) Status() Status {
	snap := c.Snapshot()

	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		State:           c.State(),
		Available:       snap.Available(),
		LastSuccess:     snap.LastSuccess(),
		LastAttempt:     c.lastAttempt,
		Interval:        c.interval,
		IntervalMinutes: int(c.interval / time.Minute),
		Thermostats:     snap.Len(),
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}
	return st
}

// loop owns every state transition after Start.
func (c *Coordinator) loop() {
	defer close(c.done)
	defer c.ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			if c.cancelFetch != nil {
				c.cancelFetch()
			}
			return

		case <-c.ticker.C():
			c.startFetch(TriggerTick)

		case trig := <-c.refreshCh:
			c.startFetch(trig)

		case d := <-c.intervalCh:
			if c.State() != StateHalted {
				c.ticker.Reset(d)
			}
			c.debug("poll interval changed", "interval", d)

		case client := <-c.reconfigureCh:
			c.reconfigure(client)

		case res := <-c.results:
			if res.gen != c.gen {
				c.debug("discarding superseded fetch", "trigger", res.trigger)
				continue
			}
			c.inFlight = false
			c.cancelFetch = nil
			c.handleResult(res)
		}
	}
}

// startFetch launches the worker unless a fetch is in flight or polling is
// halted.
func (c *Coordinator) startFetch(trigger Trigger) {
	if c.inFlight {
		c.debug("fetch in flight, skipping", "trigger", trigger)
		return
	}
	if c.State() == StateHalted {
		c.debug("polling halted, skipping", "trigger", trigger)
		return
	}

	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelFetch = cancel
	c.inFlight = true
	c.setState(StateFetching)
	started := c.clock.Now()

	c.workersWG.Add(1)
	go func() {
		defer c.workersWG.Done()
		defer cancel()

		raw, err := client.Call(ctx, "thermostat", "read", nil)
		select {
		case c.results <- fetchResult{gen: gen, trigger: trigger, started: started, raw: raw, err: err}:
		case <-c.ctx.Done():
		}
	}()
}

// reconfigure abandons any in-flight fetch and fetches with the new client.
func (c *Coordinator) reconfigure(client beestat.Caller) {
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	// The abandoned result carries the old generation and is discarded.
	c.inFlight = false

	if c.State() == StateHalted {
		c.setState(c.resumeState())
		c.ticker.Reset(c.Interval())
		c.info("polling resumed after reconfiguration")
	}
	c.startFetch(TriggerReconfigure)
}

// handleResult classifies a completed attempt, updates the cache and
// publishes exactly one Update.
func (c *Coordinator) handleResult(res fetchResult) {
	now := c.clock.Now()
	prev := c.snapshot.Load()

	upd := Update{Trigger: res.trigger, At: now, Duration: now.Sub(res.started)}

	err := res.err
	var norm thermostat.Result
	if err == nil {
		norm, err = thermostat.Normalize(res.raw, now)
		upd.Diagnostics = norm.Errors
	}

	switch {
	case err == nil:
		upd.Snapshot = norm.Snapshot
		upd.State = StateReady
		upd.Changes = thermostat.Diff(prev, norm.Snapshot)
		for _, d := range norm.Errors {
			c.warn("thermostat record skipped", "error", d)
		}

	case beestat.IsAuth(err):
		upd.Snapshot = prev.WithAvailability(false)
		upd.State = StateHalted
		upd.Err = err
		c.ticker.Stop()
		c.logError("beestat rejected the api key, polling halted", "error", err)

	default:
		upd.Snapshot = prev.WithAvailability(false)
		upd.State = StateUnavailable
		upd.Err = err
		if errors.Is(err, context.Canceled) {
			c.debug("fetch cancelled", "trigger", res.trigger)
		} else {
			c.warn("beestat poll failed", "trigger", res.trigger, "error", err)
		}
	}

	c.snapshot.Store(upd.Snapshot)
	c.setState(upd.State)

	c.mu.Lock()
	c.lastErr = upd.Err
	c.lastAttempt = now
	listeners := make([]func(Update), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	if c.ctx.Err() != nil || c.stopped.Load() {
		return
	}

	c.debug("poll complete",
		"trigger", res.trigger,
		"state", upd.State,
		"thermostats", upd.Snapshot.Len(),
		"remote_sensors", upd.Snapshot.SensorCount(),
		"duration_ms", upd.Duration.Milliseconds(),
	)
	for _, fn := range listeners {
		fn(upd)
	}
}

// resumeState is the state left behind Halted: Unavailable when data was
// fetched before the halt, Idle otherwise.
func (c *Coordinator) resumeState() State {
	if !c.snapshot.Load().LastSuccess().IsZero() {
		return StateUnavailable
	}
	return StateIdle
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

// sendLatest puts v in a single-slot channel, replacing any unread value.
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (c *Coordinator) debug(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, kv...)
	}
}

func (c *Coordinator) info(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.Info(msg, kv...)
	}
}

func (c *Coordinator) warn(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, kv...)
	}
}

func (c *Coordinator) logError(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.Error(msg, kv...)
	}
}
