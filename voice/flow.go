// File: voice/flow.go
// Author: momentics <momentics@gmail.com>

package voice

import (
	"fmt"
	"strings"

	"github.com/momentics/voicering/api"
)

// Flow selects the engine pipeline.
type Flow int32

const (
	FlowFull Flow = iota
	FlowAFEKWS
	FlowAFEKWSVAD
	FlowAFE
	FlowVAD
	FlowKWS
	FlowASR
)

var flowNames = [...]string{
	FlowFull:      "full",
	FlowAFEKWS:    "afe-kws",
	FlowAFEKWSVAD: "afe-kws-vad",
	FlowAFE:       "afe",
	FlowVAD:       "vad",
	FlowKWS:       "kws",
	FlowASR:       "asr",
}

// Normalize maps unknown selectors to FlowFull.
func (f Flow) Normalize() Flow {
	if f < FlowFull || f > FlowASR {
		return FlowFull
	}
	return f
}

func (f Flow) String() string { return flowNames[f.Normalize()] }

// HasAFE reports whether the pipeline runs the front end.
func (f Flow) HasAFE() bool {
	switch f.Normalize() {
	case FlowFull, FlowAFEKWS, FlowAFEKWSVAD, FlowAFE:
		return true
	}
	return false
}

// HasVAD reports whether the pipeline emits voice activity events.
func (f Flow) HasVAD() bool {
	switch f.Normalize() {
	case FlowFull, FlowAFEKWSVAD, FlowVAD:
		return true
	}
	return false
}

// ParseFlow accepts a flow name or its numeric selector.
func ParseFlow(s string) (Flow, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range flowNames {
		if s == name || s == fmt.Sprint(i) {
			return Flow(i), nil
		}
	}
	return FlowFull, fmt.Errorf("unknown flow %q: %w", s, api.ErrInvalidArgument)
}
