// File: voice/agent.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Voice agent: attaches a host-produced mic ring, builds an engine from a
// parcel-encoded config, feeds it fixed-size frames and forwards engine
// events to the host.

package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/voicering/affinity"
	"github.com/momentics/voicering/api"
	"github.com/momentics/voicering/control"
	"github.com/momentics/voicering/core/cache"
	"github.com/momentics/voicering/core/parcel"
	"github.com/momentics/voicering/core/ring"
	"github.com/momentics/voicering/pool"
)

// Config store keys honoured on reload.
const (
	ConfigPollInterval = "agent.poll_interval"
)

// Metric names.
const (
	MetricFramesFed      = "voice.frames.fed"
	MetricFramesShort    = "voice.frames.short"
	MetricFeedErrors     = "voice.feed.errors"
	MetricEventsNotified = "voice.events.notified"
	MetricEventsDropped  = "voice.events.dropped"
	MetricEventsRejected = "voice.events.rejected"
	MetricNotifyErrors   = "voice.notify.errors"

	probeMic = "voice.mic"
)

var _ api.GracefulShutdown = (*Agent)(nil)

// Options configures an Agent. Notifier and Factory are required.
type Options struct {
	Notifier Notifier
	Factory  EngineFactory

	// Maintainer serves Coherent mic rings; nil selects a plain fence.
	Maintainer cache.Maintainer

	PollInterval time.Duration
	Backlog      int

	// PinCPU pins the frame loop thread to CPU.
	PinCPU bool
	CPU    int

	Pool    api.BytePool
	Control *control.Controller
}

// CreateParams describes one engine instance.
type CreateParams struct {
	UserData uint32
	Flow     Flow

	// MicRegion holds a ring header placed by the producer, followed by its
	// payload. ReleaseMic, if set, runs once when the ring is closed.
	MicRegion  []byte
	ReleaseMic func() error

	// Config is the parcel-encoded Config. It is read in place and the host
	// is told through StateConfigReleased when it may reuse the bytes.
	Config []byte

	// Resource is an optional engine blob, see LoadResource.
	Resource []byte
}

// Agent runs at most one engine at a time.
type Agent struct {
	opts Options
	ctl  *control.Controller
	pool api.BytePool
	poll atomic.Int64

	mu       sync.Mutex
	engine   Engine
	mic      api.ByteRing
	userData uint32
	flow     Flow
	events   *backlog
	cancel   context.CancelFunc
	stop     chan struct{}
	done     chan struct{}

	fed, short, feedErrs *atomic.Uint64
	notified, dropped    *atomic.Uint64
	rejected, notifyErrs *atomic.Uint64
}

// New returns an idle agent.
func New(opts Options) (*Agent, error) {
	if opts.Notifier == nil || opts.Factory == nil {
		return nil, fmt.Errorf("voice agent: notifier and engine factory are required: %w", api.ErrInvalidArgument)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Backlog <= 0 {
		opts.Backlog = DefaultBacklog
	}
	if opts.Pool == nil {
		opts.Pool = pool.Default()
	}
	if opts.Control == nil {
		opts.Control = control.New()
	}
	a := &Agent{opts: opts, ctl: opts.Control, pool: opts.Pool}
	a.poll.Store(int64(opts.PollInterval))

	m := a.ctl.Metrics()
	a.fed = m.Counter(MetricFramesFed)
	a.short = m.Counter(MetricFramesShort)
	a.feedErrs = m.Counter(MetricFeedErrors)
	a.notified = m.Counter(MetricEventsNotified)
	a.dropped = m.Counter(MetricEventsDropped)
	a.rejected = m.Counter(MetricEventsRejected)
	a.notifyErrs = m.Counter(MetricNotifyErrors)

	a.ctl.OnReload(a.reload)
	return a, nil
}

func (a *Agent) reload() {
	d, err := a.ctl.Config().Duration(ConfigPollInterval, a.opts.PollInterval)
	if err != nil || d <= 0 {
		Logger().Warn("voice agent: ignoring poll interval", zap.Error(err), zap.Duration("value", d))
		return
	}
	if old := time.Duration(a.poll.Swap(int64(d))); old != d {
		Logger().Info("voice agent: poll interval changed", zap.Duration("from", old), zap.Duration("to", d))
	}
}

// PollInterval returns the current wait between mic ring checks.
func (a *Agent) PollInterval() time.Duration { return time.Duration(a.poll.Load()) }

// Create attaches the mic ring, decodes the config and builds the engine.
// The config release notification is sent exactly once, whether or not
// creation succeeds.
func (a *Agent) Create(ctx context.Context, params CreateParams) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine != nil {
		return ErrAlreadyCreated
	}

	mic, err := ring.AttachAny(params.MicRegion, a.opts.Maintainer, params.ReleaseMic)
	if err != nil {
		return fmt.Errorf("voice agent: attach mic ring: %w", err)
	}
	defer func() {
		if err != nil {
			mic.Close()
		}
	}()

	if mic.Stats().Mode == api.RingCoherent && a.opts.Maintainer != nil {
		a.opts.Maintainer.Invalidate(params.Config)
	}
	cfgParcel := parcel.FromBytes(params.Config, func([]byte) {
		a.notifyState(ctx, StateConfigReleased, params.UserData)
	})
	defer cfgParcel.Destroy()

	cfg, err := DecodeConfig(cfgParcel)
	if err != nil {
		return fmt.Errorf("voice agent: decode config: %w", err)
	}

	// Engines may emit while being built, so delivery runs first.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events := newBacklog(a.opts.Backlog)
	go events.run(func(m Message) { a.deliver(runCtx, m) })
	a.userData, a.events = params.UserData, events

	flow := params.Flow.Normalize()
	engine, err := a.opts.Factory(flow, cfg, params.Resource, a.onEvent)
	if err != nil {
		events.close()
		cancel()
		a.events = nil
		return fmt.Errorf("voice agent: create %s engine: %w", flow, err)
	}

	a.engine, a.mic, a.flow, a.cancel = engine, mic, flow, cancel
	a.ctl.Probes().RegisterRing(probeMic, mic)

	Logger().Info("voice agent created",
		zap.Uint32("user_data", params.UserData),
		zap.Stringer("flow", flow),
		zap.Stringer("mic_mode", mic.Stats().Mode),
		zap.Uint32("mic_capacity", mic.Capacity()),
		zap.Int("resource_bytes", len(params.Resource)),
		zap.Int("keywords", len(cfg.KWS.Keywords)))
	return nil
}

// Start launches the frame loop. The loop ends on Destroy or when ctx is done.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine == nil {
		return ErrNotCreated
	}
	if a.runningLocked() {
		return ErrRunning
	}
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	go a.loop(ctx, a.engine, a.mic, a.stop, a.done)
	Logger().Info("voice loop started", zap.Duration("poll", a.PollInterval()))
	return nil
}

// Running reports whether the frame loop has been started and not destroyed.
func (a *Agent) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runningLocked()
}

// runningLocked forgets a loop that already returned on its own context.
func (a *Agent) runningLocked() bool {
	if a.done == nil {
		return false
	}
	select {
	case <-a.done:
		a.stop, a.done = nil, nil
		return false
	default:
		return true
	}
}

func (a *Agent) loop(ctx context.Context, engine Engine, mic api.ByteRing, stop, done chan struct{}) {
	defer close(done)
	if a.opts.PinCPU {
		unpin, err := affinity.Pin(a.opts.CPU)
		if err != nil {
			Logger().Warn("voice loop: cpu pinning failed", zap.Int("cpu", a.opts.CPU), zap.Error(err))
		}
		defer unpin()
	}

	frame := a.pool.Acquire(FrameBytes)
	defer a.pool.Release(frame)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		if mic.Available() < FrameBytes {
			a.short.Add(1)
			timer.Reset(a.PollInterval())
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			continue
		}
		if mic.Read(frame) != FrameBytes {
			continue
		}
		if err := engine.Feed(frame); err != nil {
			a.feedErrs.Add(1)
			Logger().Warn("voice loop: feed failed", zap.Error(err))
			continue
		}
		a.fed.Add(1)
	}
}

// onEvent copies an engine event into a notify buffer and queues it.
func (a *Agent) onEvent(ev Event) error {
	buf := a.pool.Acquire(NotifyBufferSize)
	var n int
	var err error
	switch {
	case ev.Type == EventAFE && ev.AFE != nil:
		n, err = encodeAFE(buf, ev.AFE)
	case len(ev.Data) > len(buf):
		err = ErrEventTooLarge
	default:
		n = copy(buf, ev.Data)
	}
	if err != nil {
		a.pool.Release(buf)
		a.rejected.Add(1)
		Logger().Warn("voice event rejected", zap.Stringer("type", ev.Type), zap.Error(err))
		return err
	}

	old, dropped := a.events.push(Message{UserData: a.userData, Type: ev.Type, Payload: buf[:n]})
	if dropped {
		a.pool.Release(old.Payload)
		a.dropped.Add(1)
		Logger().Warn("voice event backlog full, dropped oldest", zap.Stringer("type", old.Type))
	}
	return nil
}

func (a *Agent) deliver(ctx context.Context, m Message) {
	defer a.pool.Release(m.Payload)
	if err := a.opts.Notifier.NotifyMsg(ctx, m); err != nil {
		a.notifyErrs.Add(1)
		Logger().Error("voice notify failed", zap.Stringer("type", m.Type), zap.Error(err))
		return
	}
	a.notified.Add(1)
}

func (a *Agent) notifyState(ctx context.Context, kind StateKind, data uint32) error {
	if err := a.opts.Notifier.NotifyState(ctx, kind, data); err != nil {
		a.notifyErrs.Add(1)
		Logger().Error("voice state notify failed", zap.Stringer("state", kind), zap.Error(err))
		return err
	}
	return nil
}

// Flow returns the pipeline of the current engine.
func (a *Agent) Flow() (Flow, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flow, a.engine != nil
}

// Ready announces the service to the host.
func (a *Agent) Ready(ctx context.Context) error {
	return a.notifyState(ctx, StateReady, 1)
}

// MicStats returns the mic ring header snapshot while an engine exists.
func (a *Agent) MicStats() (api.RingStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mic == nil {
		return api.RingStats{}, false
	}
	return a.mic.Stats(), true
}

// Destroy stops the loop, waits for it to exit, then closes the engine and
// the mic ring and flushes pending events. It is a no-op without an engine.
func (a *Agent) Destroy() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine == nil {
		return nil
	}
	if a.stop != nil {
		close(a.stop)
		<-a.done
		a.stop, a.done = nil, nil
	}

	var errs []error
	if err := a.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close engine: %w", err))
	}
	a.events.close()
	a.cancel()
	a.ctl.Probes().UnregisterProbe(probeMic)
	if err := a.mic.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close mic ring: %w", err))
	}
	a.engine, a.mic, a.events, a.cancel = nil, nil, nil, nil

	Logger().Info("voice agent destroyed",
		zap.Uint64("frames_fed", a.fed.Load()),
		zap.Uint64("events_notified", a.notified.Load()),
		zap.Uint64("events_dropped", a.dropped.Load()))
	return errors.Join(errs...)
}

// Shutdown is Destroy.
func (a *Agent) Shutdown() error { return a.Destroy() }
