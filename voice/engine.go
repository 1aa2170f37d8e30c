// File: voice/engine.go
// Author: momentics <momentics@gmail.com>
//
// Engine and notifier boundaries of the voice agent.

package voice

import "context"

// EventType classifies engine output.
type EventType int32

const (
	EventAFE EventType = iota
	EventVAD
	EventKWS
	EventASR
	EventTimeout
)

func (t EventType) String() string {
	switch t {
	case EventAFE:
		return "afe"
	case EventVAD:
		return "vad"
	case EventKWS:
		return "kws"
	case EventASR:
		return "asr"
	case EventTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Event is one engine output. AFE events carry AFE; all others carry Data.
// Both are only valid for the duration of the callback.
type Event struct {
	Type EventType
	Data []byte
	AFE  *AFEFrame
}

// EventFunc receives engine output on the goroutine that called Feed.
type EventFunc func(ev Event) error

// Engine consumes interleaved mic frames of FrameBytes.
type Engine interface {
	Feed(frame []byte) error
	Close() error
}

// EngineFactory builds the engine for a flow. resource may be nil.
type EngineFactory func(flow Flow, cfg *Config, resource []byte, events EventFunc) (Engine, error)

// StateKind identifies an out-of-band state notification.
type StateKind int32

const (
	// StateReady announces the service; data is 1.
	StateReady StateKind = iota
	// StateConfigReleased tells the host its config bytes may be reused;
	// data is the user data from Create.
	StateConfigReleased
)

func (k StateKind) String() string {
	switch k {
	case StateReady:
		return "ready"
	case StateConfigReleased:
		return "config-released"
	default:
		return "unknown"
	}
}

// Message is an event delivered to the host. Payload is owned by the agent
// and only valid until NotifyMsg returns.
type Message struct {
	UserData uint32
	Type     EventType
	Payload  []byte
}

// Notifier is the host-facing delivery channel.
type Notifier interface {
	NotifyMsg(ctx context.Context, msg Message) error
	NotifyState(ctx context.Context, kind StateKind, data uint32) error
}
