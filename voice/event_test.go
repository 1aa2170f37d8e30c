// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package voice

import (
	"strings"
	"testing"

	"github.com/momentics/voicering/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAFEEncodingLayout(t *testing.T) {
	samples := make([]byte, MonoFrameBytes)
	samples[0], samples[MonoFrameBytes-1] = 0x11, 0x22
	buf := make([]byte, NotifyBufferSize)
	n, err := encodeAFE(buf, &AFEFrame{Channels: 2, Samples: samples, JSON: `{"doa":90}`})
	require.NoError(t, err)
	assert.Equal(t, 4+MonoFrameBytes+len(`{"doa":90}`)+1, n)
	assert.Equal(t, byte(0), buf[n-1])

	f, err := DecodeAFE(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.Channels)
	assert.Equal(t, samples, f.Samples)
	assert.Equal(t, `{"doa":90}`, f.JSON)
}

func TestAFEEncodingBounds(t *testing.T) {
	buf := make([]byte, NotifyBufferSize)
	_, err := encodeAFE(buf, &AFEFrame{Samples: make([]byte, 10)})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = encodeAFE(buf, &AFEFrame{Samples: make([]byte, MonoFrameBytes), JSON: "a\x00b"})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	// 4 + 512 + json + NUL must fit in the notify buffer.
	fits := strings.Repeat("j", NotifyBufferSize-4-MonoFrameBytes-1)
	_, err = encodeAFE(buf, &AFEFrame{Samples: make([]byte, MonoFrameBytes), JSON: fits})
	require.NoError(t, err)
	_, err = encodeAFE(buf, &AFEFrame{Samples: make([]byte, MonoFrameBytes), JSON: fits + "j"})
	assert.ErrorIs(t, err, ErrEventTooLarge)

	_, err = DecodeAFE([]byte{1, 0})
	assert.ErrorIs(t, err, api.ErrShortRead)
}

func TestFlowSelectors(t *testing.T) {
	assert.Equal(t, FlowFull, Flow(42).Normalize())
	assert.Equal(t, "full", Flow(-1).String())
	assert.Equal(t, "afe-kws-vad", FlowAFEKWSVAD.String())
	assert.True(t, FlowAFEKWS.HasAFE())
	assert.False(t, FlowVAD.HasAFE())
	assert.True(t, FlowVAD.HasVAD())
	assert.False(t, FlowKWS.HasVAD())

	f, err := ParseFlow("VAD")
	require.NoError(t, err)
	assert.Equal(t, FlowVAD, f)
	f, err = ParseFlow("6")
	require.NoError(t, err)
	assert.Equal(t, FlowASR, f)
	_, err = ParseFlow("dsp")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
