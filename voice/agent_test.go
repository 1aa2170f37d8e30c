// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package voice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/momentics/voicering/api"
	"github.com/momentics/voicering/control"
	"github.com/momentics/voicering/core/ring"
	"github.com/momentics/voicering/fake"
	"github.com/momentics/voicering/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const micCapacity = 1 << 14 // ten and a bit frames, so frames straddle the wrap

type harness struct {
	agent    *voice.Agent
	notifier *fake.Notifier
	factory  *fake.Factory
	ctl      *control.Controller
	pool     *fake.BytePool
	prod     *ring.Ring[ring.Coherent]
	region   []byte
	released int
}

func newHarness(t *testing.T, opts voice.Options) *harness {
	t.Helper()
	h := &harness{
		notifier: opts.Notifier.(*fake.Notifier),
		factory:  &fake.Factory{},
		ctl:      control.New(),
		pool:     &fake.BytePool{},
	}
	if opts.Factory == nil {
		opts.Factory = h.factory.New
	}
	opts.Control = h.ctl
	opts.Pool = h.pool
	opts.PollInterval = 100 * time.Microsecond

	h.region = ring.NewRegion(micCapacity)
	prod, err := ring.Place(h.region, micCapacity, ring.NewCoherentPolicy(nil), nil)
	require.NoError(t, err)
	h.prod = prod

	a, err := voice.New(opts)
	require.NoError(t, err)
	h.agent = a
	t.Cleanup(func() { _ = a.Destroy() })
	return h
}

func (h *harness) params(t *testing.T, cfg *voice.Config) voice.CreateParams {
	t.Helper()
	raw, err := cfg.EncodeBytes()
	require.NoError(t, err)
	return voice.CreateParams{
		UserData:   0xC0FFEE,
		Flow:       voice.FlowAFEKWS,
		MicRegion:  h.region,
		ReleaseMic: func() error { h.released++; return nil },
		Config:     raw,
	}
}

func frame(seed byte) []byte {
	f := make([]byte, voice.FrameBytes)
	for i := range f {
		f[i] = seed + byte(i)
	}
	return f
}

func TestAgentLifecycle(t *testing.T) {
	n := &fake.Notifier{}
	h := newHarness(t, voice.Options{Notifier: n})
	ctx := context.Background()

	require.NoError(t, h.agent.Ready(ctx))
	require.ErrorIs(t, h.agent.Start(ctx), voice.ErrNotCreated)

	cfg := voice.DefaultConfig()
	cfg.KWS.Keywords = []voice.Keyword{{Text: "hey ring", Threshold: 0.6}}
	params := h.params(t, cfg)
	params.Resource = []byte("blob")
	require.NoError(t, h.agent.Create(ctx, params))

	assert.Equal(t, []fake.State{
		{Kind: voice.StateReady, Data: 1},
		{Kind: voice.StateConfigReleased, Data: 0xC0FFEE},
	}, n.States(), "config released exactly once")

	eng := h.factory.Last()
	require.NotNil(t, eng)
	assert.Equal(t, voice.FlowAFEKWS, eng.Flow)
	assert.Equal(t, cfg, eng.Config)
	assert.Equal(t, []byte("blob"), eng.Resource)
	flow, ok := h.agent.Flow()
	assert.True(t, ok)
	assert.Equal(t, voice.FlowAFEKWS, flow)

	assert.ErrorIs(t, h.agent.Create(ctx, params), voice.ErrAlreadyCreated)
	assert.ErrorIs(t, h.agent.Create(ctx, params), api.ErrAlreadyExists)
	assert.Equal(t, 1, h.factory.Built())

	require.NoError(t, h.agent.Start(ctx))
	assert.ErrorIs(t, h.agent.Start(ctx), voice.ErrRunning)
	assert.True(t, h.agent.Running())

	// Frames reach the engine whole and in order, including across the wrap.
	var want [][]byte
	for i := 0; i < 40; i++ {
		f := frame(byte(i))
		want = append(want, f)
		require.Eventually(t, func() bool {
			return h.prod.Write(f) == uint32(len(f))
		}, 2*time.Second, 50*time.Microsecond)
	}
	// A partial frame is never fed.
	require.Equal(t, uint32(100), h.prod.Write(make([]byte, 100)))
	require.Eventually(t, func() bool { return len(eng.Frames()) == len(want) }, 2*time.Second, time.Millisecond)
	assert.Equal(t, want, eng.Frames())

	stats, ok := h.agent.MicStats()
	require.True(t, ok)
	assert.Equal(t, uint32(100), stats.Used)
	assert.Contains(t, h.ctl.Probes().DumpState(), "voice.mic")

	require.NoError(t, h.agent.Destroy())
	assert.True(t, eng.Closed())
	assert.False(t, h.agent.Running())
	assert.Equal(t, 1, h.released)
	_, ok = h.agent.MicStats()
	assert.False(t, ok)
	assert.NotContains(t, h.ctl.Probes().DumpState(), "voice.mic")
	assert.Equal(t, uint64(40), h.ctl.Stats()[voice.MetricFramesFed])
	require.NoError(t, h.agent.Destroy(), "second destroy is a no-op")

	// The agent can host a new engine after Destroy.
	require.NoError(t, h.agent.Create(ctx, h.params(t, cfg)))
	assert.Equal(t, 2, h.factory.Built())
	require.NoError(t, h.agent.Shutdown())
	assert.Equal(t, 2, h.released)
}

func TestAgentCreateFailuresReleaseConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("decode", func(t *testing.T) {
		n := &fake.Notifier{}
		h := newHarness(t, voice.Options{Notifier: n})
		params := h.params(t, voice.DefaultConfig())
		params.Config = params.Config[:10]
		err := h.agent.Create(ctx, params)
		assert.ErrorIs(t, err, api.ErrShortRead)
		assert.Equal(t, []fake.State{{Kind: voice.StateConfigReleased, Data: 0xC0FFEE}}, n.States())
		assert.Equal(t, 1, h.released, "mic ring closed on failure")
		assert.Zero(t, h.factory.Built())
	})

	t.Run("engine", func(t *testing.T) {
		n := &fake.Notifier{}
		boom := errors.New("no model")
		h := newHarness(t, voice.Options{Notifier: n})
		h.factory.Err = boom
		err := h.agent.Create(ctx, h.params(t, voice.DefaultConfig()))
		assert.ErrorIs(t, err, boom)
		assert.Len(t, n.States(), 1)
		assert.Equal(t, 1, h.released)
		assert.ErrorIs(t, h.agent.Start(ctx), voice.ErrNotCreated)
	})

	t.Run("mic header", func(t *testing.T) {
		n := &fake.Notifier{}
		h := newHarness(t, voice.Options{Notifier: n})
		params := h.params(t, voice.DefaultConfig())
		params.MicRegion = ring.NewRegion(64)
		err := h.agent.Create(ctx, params)
		assert.ErrorIs(t, err, api.ErrGeometry)
		assert.Empty(t, n.States(), "config untouched when the ring is unusable")
	})
}

func TestAgentForwardsEvents(t *testing.T) {
	n := &fake.Notifier{}
	h := newHarness(t, voice.Options{Notifier: n})
	h.factory.Prepare = func(e *fake.Engine) {
		e.OnFeed = func(e *fake.Engine, f []byte) error {
			if err := e.Emit(voice.Event{Type: voice.EventKWS, Data: []byte(`{"keyword":"hey ring"}`)}); err != nil {
				return err
			}
			return e.Emit(voice.Event{Type: voice.EventAFE, AFE: &voice.AFEFrame{
				Channels: 1,
				Samples:  f[:voice.MonoFrameBytes],
				JSON:     `{"doa":45}`,
			}})
		}
	}
	ctx := context.Background()
	require.NoError(t, h.agent.Create(ctx, h.params(t, voice.DefaultConfig())))
	require.NoError(t, h.agent.Start(ctx))

	f := frame(9)
	require.Equal(t, uint32(len(f)), h.prod.Write(f))
	require.Eventually(t, func() bool { return len(n.Messages()) == 2 }, 2*time.Second, time.Millisecond)

	msgs := n.Messages()
	assert.Equal(t, voice.EventKWS, msgs[0].Type)
	assert.Equal(t, uint32(0xC0FFEE), msgs[0].UserData)
	assert.Equal(t, `{"keyword":"hey ring"}`, string(msgs[0].Payload))

	assert.Equal(t, voice.EventAFE, msgs[1].Type)
	afe, err := voice.DecodeAFE(msgs[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, f[:voice.MonoFrameBytes], afe.Samples)
	assert.Equal(t, `{"doa":45}`, afe.JSON)

	require.NoError(t, h.agent.Destroy())
	assert.Equal(t, uint64(2), h.ctl.Stats()[voice.MetricEventsNotified])
	assert.Zero(t, h.pool.Outstanding(), "every acquired buffer is returned")
}

func TestAgentRejectsOversizeEvents(t *testing.T) {
	n := &fake.Notifier{}
	h := newHarness(t, voice.Options{Notifier: n})
	ctx := context.Background()
	require.NoError(t, h.agent.Create(ctx, h.params(t, voice.DefaultConfig())))
	eng := h.factory.Last()

	err := eng.Emit(voice.Event{Type: voice.EventASR, Data: make([]byte, voice.NotifyBufferSize+1)})
	assert.ErrorIs(t, err, voice.ErrEventTooLarge)
	require.NoError(t, eng.Emit(voice.Event{Type: voice.EventASR, Data: make([]byte, voice.NotifyBufferSize)}))

	require.NoError(t, h.agent.Destroy())
	require.Len(t, n.Messages(), 1)
	assert.Len(t, n.Messages()[0].Payload, voice.NotifyBufferSize)
	assert.Equal(t, uint64(1), h.ctl.Stats()[voice.MetricEventsRejected])
}

func TestAgentBacklogDropsOldest(t *testing.T) {
	n := &fake.Notifier{Block: make(chan struct{}), Entered: make(chan struct{}, 8)}
	h := newHarness(t, voice.Options{Notifier: n, Backlog: 2})
	ctx := context.Background()
	require.NoError(t, h.agent.Create(ctx, h.params(t, voice.DefaultConfig())))
	eng := h.factory.Last()

	// The first event is taken by the blocked notifier; the rest queue up.
	require.NoError(t, eng.Emit(voice.Event{Type: voice.EventVAD, Data: []byte("0")}))
	<-n.Entered
	for _, s := range []string{"1", "2", "3"} {
		require.NoError(t, eng.Emit(voice.Event{Type: voice.EventVAD, Data: []byte(s)}))
	}
	close(n.Block)
	require.NoError(t, h.agent.Destroy())

	var got []string
	for _, m := range n.Messages() {
		got = append(got, string(m.Payload))
	}
	assert.Equal(t, []string{"0", "2", "3"}, got)
	assert.Equal(t, uint64(1), h.ctl.Stats()[voice.MetricEventsDropped])
	assert.Zero(t, h.pool.Outstanding())
}

func TestAgentFeedErrorsAreCounted(t *testing.T) {
	n := &fake.Notifier{}
	h := newHarness(t, voice.Options{Notifier: n})
	ctx := context.Background()
	require.NoError(t, h.agent.Create(ctx, h.params(t, voice.DefaultConfig())))
	h.factory.Last().SetFeedError(errors.New("dsp busy"))
	require.NoError(t, h.agent.Start(ctx))

	require.Equal(t, uint32(voice.FrameBytes), h.prod.Write(frame(1)))
	require.Eventually(t, func() bool {
		return h.ctl.Stats()[voice.MetricFeedErrors] == uint64(1)
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, uint64(0), h.ctl.Stats()[voice.MetricFramesFed])
}

func TestAgentStopsWithContext(t *testing.T) {
	n := &fake.Notifier{}
	h := newHarness(t, voice.Options{Notifier: n})
	require.NoError(t, h.agent.Create(context.Background(), h.params(t, voice.DefaultConfig())))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.agent.Start(ctx))
	cancel()
	require.NoError(t, h.agent.Destroy())
}

func TestAgentRestartsAfterContextDone(t *testing.T) {
	n := &fake.Notifier{}
	h := newHarness(t, voice.Options{Notifier: n})
	require.NoError(t, h.agent.Create(context.Background(), h.params(t, voice.DefaultConfig())))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.agent.Start(ctx))
	require.True(t, h.agent.Running())
	cancel()
	require.Eventually(t, func() bool { return !h.agent.Running() }, 2*time.Second, time.Millisecond)

	require.NoError(t, h.agent.Start(context.Background()))
	assert.True(t, h.agent.Running())
	require.Equal(t, uint32(voice.FrameBytes), h.prod.Write(frame(7)))
	eng := h.factory.Last()
	require.Eventually(t, func() bool { return len(eng.Frames()) == 1 }, 2*time.Second, time.Millisecond)
	require.NoError(t, h.agent.Destroy())
	assert.False(t, h.agent.Running())
}

func TestAgentPollIntervalReload(t *testing.T) {
	n := &fake.Notifier{}
	h := newHarness(t, voice.Options{Notifier: n})
	assert.Equal(t, 100*time.Microsecond, h.agent.PollInterval())

	h.ctl.SetConfig(map[string]any{voice.ConfigPollInterval: "5ms"})
	assert.Equal(t, 5*time.Millisecond, h.agent.PollInterval())

	h.ctl.SetConfig(map[string]any{voice.ConfigPollInterval: "later"})
	assert.Equal(t, 5*time.Millisecond, h.agent.PollInterval(), "bad values are ignored")
}

func TestAgentRequiresCollaborators(t *testing.T) {
	_, err := voice.New(voice.Options{})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestAgentWithMeterEngine(t *testing.T) {
	n := &fake.Notifier{}
	h := newHarness(t, voice.Options{Notifier: n, Factory: voice.NewMeterEngine})
	ctx := context.Background()
	params := h.params(t, voice.DefaultConfig())
	params.Flow = voice.FlowVAD
	require.NoError(t, h.agent.Create(ctx, params))
	require.NoError(t, h.agent.Start(ctx))

	loud := make([]byte, voice.FrameBytes)
	for i := 0; i < len(loud); i += 2 {
		loud[i], loud[i+1] = 0xD0, 0x07 // 2000
	}
	require.Equal(t, uint32(len(loud)), h.prod.Write(loud))
	require.Eventually(t, func() bool { return len(n.Messages()) == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, voice.EventVAD, n.Messages()[0].Type)
	assert.JSONEq(t, `{"status":1,"offset_ms":0}`, string(n.Messages()[0].Payload))
}

func TestAgentInvalidatesConfigForCoherentRing(t *testing.T) {
	n := &fake.Notifier{}
	m := &fake.Maintainer{}
	h := newHarness(t, voice.Options{Notifier: n, Maintainer: m})
	params := h.params(t, voice.DefaultConfig())
	require.NoError(t, h.agent.Create(context.Background(), params))
	assert.Equal(t, 1, m.Invalidations(len(params.Config)))
	assert.GreaterOrEqual(t, m.Invalidations(ring.HeaderSize), 1, "header refreshed on attach")
}
