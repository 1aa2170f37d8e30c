// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package voice

import (
	"fmt"
	"testing"

	"github.com/momentics/voicering/api"
	"github.com/momentics/voicering/core/parcel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTripKeywordCounts(t *testing.T) {
	for n := 0; n <= MaxKeywords; n++ {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.KWS.Keywords = nil
			for i := 0; i < n; i++ {
				cfg.KWS.Keywords = append(cfg.KWS.Keywords, Keyword{
					Text:      fmt.Sprintf("keyword-%d", i),
					Threshold: float32(i) / 10,
				})
			}
			cfg.AFE.SSLResolution = 2.5
			cfg.AFE.EnableSSL = true
			cfg.VAD.MinSpeechDuration = 0xFFFFFFFF
			cfg.Common.MemoryAllocMode = -3

			p := parcel.New()
			require.NoError(t, cfg.Encode(p))
			got, err := DecodeConfig(p)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
			assert.Zero(t, p.Readable())
		})
	}
}

func TestConfigLeadingLayout(t *testing.T) {
	cfg := &Config{}
	cfg.AFE.MicArray = 7
	cfg.AFE.RefNum = 1
	cfg.AFE.EnableAEC = true
	raw, err := cfg.EncodeBytes()
	require.NoError(t, err)

	p := parcel.FromBytes(raw, nil)
	assert.Equal(t, int32(7), p.ReadInt32())
	assert.Equal(t, int32(1), p.ReadInt32())
	p.ReadInt32() // sample rate
	p.ReadInt32() // frame size
	p.ReadInt32() // afe mode
	assert.Equal(t, int32(1), p.ReadInt32(), "bools travel as int32")
	assert.Equal(t, 24, p.ReadCursor())
}

func TestConfigRejectsTooManyKeywords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KWS.Keywords = make([]Keyword, MaxKeywords+1)
	for i := range cfg.KWS.Keywords {
		cfg.KWS.Keywords[i].Text = "kw"
	}
	p := parcel.New()
	err := cfg.Encode(p)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Zero(t, p.Len(), "validation precedes writing")

	cfg.KWS.Keywords = []Keyword{{Text: ""}}
	assert.ErrorIs(t, cfg.Encode(parcel.New()), api.ErrInvalidArgument)
}

func TestConfigEncodeHitsCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KWS.Keywords = []Keyword{{Text: "x"}}
	p := parcel.New(parcel.WithMaxCapacity(64))
	err := cfg.Encode(p)
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
}

func TestDecodeTruncated(t *testing.T) {
	raw, err := DefaultConfig().EncodeBytes()
	require.NoError(t, err)
	cuts := []int{0, 3, 10, 11, 40, 50, keywordCountOffset - 2, len(raw) - 1}
	for cut := keywordCountOffset + 1; cut < len(raw); cut += 7 {
		cuts = append(cuts, cut)
	}
	for _, cut := range cuts {
		_, err := DecodeConfig(parcel.FromBytes(raw[:cut], nil))
		assert.ErrorIs(t, err, api.ErrShortRead, "cut at %d", cut)
		var e *api.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, api.ErrCodeCorrupt, e.Code)
	}
}

// keywordCountOffset is where the int8 keyword count sits: 22 four-byte AFE
// fields and 4 VAD fields precede it.
const keywordCountOffset = 104

func TestDecodeBadKeywordCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KWS.Keywords = nil
	raw, err := cfg.EncodeBytes()
	require.NoError(t, err)
	require.Equal(t, byte(0), raw[keywordCountOffset])
	require.Len(t, raw, keywordCountOffset+4+6*4, "count is padded to the next int32")

	raw[keywordCountOffset] = MaxKeywords + 1
	_, err = DecodeConfig(parcel.FromBytes(raw, nil))
	var e *api.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, api.ErrCodeCorrupt, e.Code)

	raw[keywordCountOffset] = 0xFF // -1
	_, err = DecodeConfig(parcel.FromBytes(raw, nil))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestDecodeUnterminatedKeyword(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KWS.Keywords = []Keyword{{Text: "abc"}}
	raw, err := cfg.EncodeBytes()
	require.NoError(t, err)
	_, err = DecodeConfig(parcel.FromBytes(raw[:keywordCountOffset+3], nil))
	assert.ErrorIs(t, err, api.ErrShortRead)
}
