// File: voice/frame.go
// Author: momentics <momentics@gmail.com>
//
// Microphone frame geometry shared by the agent loop and the engines.

package voice

import "time"

const (
	FrameMillis   = 16
	FrameChannels = 3 // two mics plus one AEC reference
	SampleRate    = 16000
	SampleBytes   = 2

	// FrameBytes is one interleaved multi-channel frame read from the mic ring.
	FrameBytes = FrameChannels * FrameMillis * SampleRate * SampleBytes / 1000

	// MonoFrameBytes is one channel of one frame. AFE output frames have this size.
	MonoFrameBytes = FrameMillis * SampleRate * SampleBytes / 1000

	// NotifyBufferSize bounds every event payload handed to the notifier.
	NotifyBufferSize = 1024

	// DefaultPollInterval is the wait between mic ring checks when less than
	// a frame is buffered.
	DefaultPollInterval = time.Millisecond
)
