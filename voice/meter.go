// File: voice/meter.go
// Author: momentics <momentics@gmail.com>
//
// Energy meter engine: a minimal stand-in for a real DSP engine that lets the
// agent run end to end. It measures channel 0 of each frame.

package voice

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/momentics/voicering/api"
)

// DefaultMeterThreshold is the RMS level, in 16-bit sample units, above
// which a frame counts as speech.
const DefaultMeterThreshold = 500

var _ Engine = (*MeterEngine)(nil)

// MeterEngine emits VAD start/stop events from frame RMS, and one AFE event
// per frame carrying channel 0 when the flow runs the front end.
type MeterEngine struct {
	flow      Flow
	threshold float64
	hangover  int // silent frames tolerated before stop
	events    EventFunc

	speaking bool
	silent   int
	frames   uint64
	mono     []byte
	closed   bool
}

// NewMeterEngine is an EngineFactory.
func NewMeterEngine(flow Flow, cfg *Config, _ []byte, events EventFunc) (Engine, error) {
	if cfg == nil || events == nil {
		return nil, fmt.Errorf("meter engine: nil config or callback: %w", api.ErrInvalidArgument)
	}
	return &MeterEngine{
		flow:      flow.Normalize(),
		threshold: DefaultMeterThreshold,
		hangover:  int(cfg.VAD.RightMargin) / FrameMillis,
		events:    events,
		mono:      make([]byte, MonoFrameBytes),
	}, nil
}

// Feed consumes one interleaved frame.
func (m *MeterEngine) Feed(frame []byte) error {
	if m.closed {
		return api.ErrClosed
	}
	if len(frame) != FrameBytes {
		return fmt.Errorf("meter engine: frame of %d bytes, want %d: %w", len(frame), FrameBytes, api.ErrInvalidArgument)
	}
	offsetMs := m.frames * FrameMillis
	m.frames++

	var sum float64
	stride := FrameChannels * SampleBytes
	for i, j := 0, 0; i < len(frame); i, j = i+stride, j+SampleBytes {
		s := int16(binary.LittleEndian.Uint16(frame[i:]))
		sum += float64(s) * float64(s)
		binary.LittleEndian.PutUint16(m.mono[j:], uint16(s))
	}
	rms := math.Sqrt(sum / float64(MonoFrameBytes/SampleBytes))

	if m.flow.HasAFE() {
		ev := Event{Type: EventAFE, AFE: &AFEFrame{
			Channels: 1,
			Samples:  m.mono,
			JSON:     fmt.Sprintf(`{"rms":%.1f}`, rms),
		}}
		if err := m.events(ev); err != nil {
			return err
		}
	}
	if !m.flow.HasVAD() {
		return nil
	}

	switch {
	case rms >= m.threshold:
		m.silent = 0
		if !m.speaking {
			m.speaking = true
			return m.vad(1, offsetMs)
		}
	case m.speaking:
		m.silent++
		if m.silent > m.hangover {
			m.speaking = false
			m.silent = 0
			return m.vad(0, offsetMs)
		}
	}
	return nil
}

func (m *MeterEngine) vad(status int, offsetMs uint64) error {
	msg := fmt.Sprintf(`{"status":%d,"offset_ms":%d}`, status, offsetMs)
	return m.events(Event{Type: EventVAD, Data: []byte(msg)})
}

// Speaking reports the current VAD state.
func (m *MeterEngine) Speaking() bool { return m.speaking }

// Close stops the engine. Further Feed calls fail.
func (m *MeterEngine) Close() error {
	m.closed = true
	return nil
}
