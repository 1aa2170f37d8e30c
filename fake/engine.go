// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the voice agent boundaries.

package fake

import (
	"sync"

	"github.com/momentics/voicering/api"
	"github.com/momentics/voicering/voice"
)

// Engine records every frame it is fed. OnFeed, if set, runs per frame and
// may emit events through Emit.
type Engine struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	feedErr  error
	closeErr error

	Flow     voice.Flow
	Config   *voice.Config
	Resource []byte
	events   voice.EventFunc

	OnFeed func(e *Engine, frame []byte) error
	fed    chan struct{}
}

// Factory builds Engines and keeps a handle on each. Err fails the build;
// Prepare runs on every new engine before it is returned.
type Factory struct {
	mu      sync.Mutex
	engines []*Engine
	Err     error
	Prepare func(e *Engine)
}

// New is a voice.EngineFactory.
func (f *Factory) New(flow voice.Flow, cfg *voice.Config, resource []byte, events voice.EventFunc) (voice.Engine, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	e := &Engine{Flow: flow, Config: cfg, Resource: resource, events: events, fed: make(chan struct{}, 1)}
	if f.Prepare != nil {
		f.Prepare(e)
	}
	f.mu.Lock()
	f.engines = append(f.engines, e)
	f.mu.Unlock()
	return e, nil
}

// Last returns the most recently built engine or nil.
func (f *Factory) Last() *Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

// Built returns the number of engines built.
func (f *Factory) Built() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

func (e *Engine) Feed(frame []byte) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return api.ErrClosed
	}
	err := e.feedErr
	e.frames = append(e.frames, append([]byte(nil), frame...))
	hook := e.OnFeed
	e.mu.Unlock()

	select {
	case e.fed <- struct{}{}:
	default:
	}
	if err != nil {
		return err
	}
	if hook != nil {
		return hook(e, frame)
	}
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return e.closeErr
}

// Emit forwards an event to the agent callback.
func (e *Engine) Emit(ev voice.Event) error {
	return e.events(ev)
}

// SetFeedError makes subsequent Feed calls fail after recording the frame.
func (e *Engine) SetFeedError(err error) {
	e.mu.Lock()
	e.feedErr = err
	e.mu.Unlock()
}

// SetCloseError sets the error returned by Close.
func (e *Engine) SetCloseError(err error) {
	e.mu.Lock()
	e.closeErr = err
	e.mu.Unlock()
}

// Frames returns copies of the frames fed so far.
func (e *Engine) Frames() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]byte(nil), e.frames...)
}

// Fed is signalled, without blocking, after each frame.
func (e *Engine) Fed() <-chan struct{} { return e.fed }

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
