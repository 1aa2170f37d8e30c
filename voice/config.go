// File: voice/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Voice engine configuration record and its parcel encoding. The encoding is
// a flat sequence of native-endian, naturally aligned scalars in the order the
// fields are declared below; keywords are zero-terminated strings.

package voice

import (
	"fmt"

	"github.com/momentics/voicering/api"
	"github.com/momentics/voicering/core/parcel"
)

// MaxKeywords bounds the keyword list; the count travels as an int8.
const MaxKeywords = 8

// AFEConfig tunes the acoustic front end.
type AFEConfig struct {
	MicArray           int32   `json:"mic_array" yaml:"mic_array"`
	RefNum             int32   `json:"ref_num" yaml:"ref_num"`
	SampleRate         int32   `json:"sample_rate" yaml:"sample_rate"`
	FrameSize          int32   `json:"frame_size" yaml:"frame_size"`
	Mode               int32   `json:"afe_mode" yaml:"afe_mode"`
	EnableAEC          bool    `json:"enable_aec" yaml:"enable_aec"`
	EnableNS           bool    `json:"enable_ns" yaml:"enable_ns"`
	EnableAGC          bool    `json:"enable_agc" yaml:"enable_agc"`
	EnableSSL          bool    `json:"enable_ssl" yaml:"enable_ssl"`
	AECMode            int32   `json:"aec_mode" yaml:"aec_mode"`
	AECEnableThreshold int32   `json:"aec_enable_threshold" yaml:"aec_enable_threshold"`
	EnableRES          bool    `json:"enable_res" yaml:"enable_res"`
	AECCost            int32   `json:"aec_cost" yaml:"aec_cost"`
	RESAggressiveMode  int32   `json:"res_aggressive_mode" yaml:"res_aggressive_mode"`
	NSMode             int32   `json:"ns_mode" yaml:"ns_mode"`
	NSCostMode         int32   `json:"ns_cost_mode" yaml:"ns_cost_mode"`
	NSAggressiveMode   int32   `json:"ns_aggressive_mode" yaml:"ns_aggressive_mode"`
	AGCFixedGain       int32   `json:"agc_fixed_gain" yaml:"agc_fixed_gain"`
	EnableAdaptiveAGC  bool    `json:"enable_adaptive_agc" yaml:"enable_adaptive_agc"`
	SSLResolution      float32 `json:"ssl_resolution" yaml:"ssl_resolution"`
	SSLMinHz           int32   `json:"ssl_min_hz" yaml:"ssl_min_hz"`
	SSLMaxHz           int32   `json:"ssl_max_hz" yaml:"ssl_max_hz"`
}

// VADConfig tunes voice activity detection. Margins and durations are in ms.
type VADConfig struct {
	Sensitivity       int32  `json:"sensitivity" yaml:"sensitivity"`
	LeftMargin        uint32 `json:"left_margin" yaml:"left_margin"`
	RightMargin       uint32 `json:"right_margin" yaml:"right_margin"`
	MinSpeechDuration uint32 `json:"min_speech_duration" yaml:"min_speech_duration"`
}

// Keyword is one wake phrase. A zero threshold selects the engine default.
type Keyword struct {
	Text      string  `json:"text" yaml:"text"`
	Threshold float32 `json:"threshold" yaml:"threshold"`
}

// KWSConfig tunes keyword spotting.
type KWSConfig struct {
	Keywords        []Keyword `json:"keywords" yaml:"keywords"`
	Sensitivity     int32     `json:"sensitivity" yaml:"sensitivity"`
	Mode            int32     `json:"mode" yaml:"mode"`
	EnableAgeGender bool      `json:"enable_age_gender" yaml:"enable_age_gender"`
}

// ASRConfig tunes speech recognition.
type ASRConfig struct {
	Sensitivity int32 `json:"sensitivity" yaml:"sensitivity"`
}

// CommonConfig holds engine-wide settings.
type CommonConfig struct {
	Timeout         int32 `json:"timeout" yaml:"timeout"`
	MemoryAllocMode int32 `json:"memory_alloc_mode" yaml:"memory_alloc_mode"`
}

// Config is the record a host sends to create an engine.
type Config struct {
	AFE    AFEConfig    `json:"afe" yaml:"afe"`
	VAD    VADConfig    `json:"vad" yaml:"vad"`
	KWS    KWSConfig    `json:"kws" yaml:"kws"`
	ASR    ASRConfig    `json:"asr" yaml:"asr"`
	Common CommonConfig `json:"common" yaml:"common"`
}

// DefaultConfig returns a config for the 3-channel 16 kHz mic ring.
func DefaultConfig() *Config {
	return &Config{
		AFE: AFEConfig{
			RefNum:             1,
			SampleRate:         SampleRate,
			FrameSize:          MonoFrameBytes / SampleBytes,
			EnableAEC:          true,
			EnableNS:           true,
			EnableAGC:          true,
			AECEnableThreshold: -40,
			EnableRES:          true,
			RESAggressiveMode:  1,
			NSAggressiveMode:   1,
			SSLResolution:      10,
			SSLMinHz:           300,
			SSLMaxHz:           3500,
		},
		VAD: VADConfig{
			Sensitivity:       1,
			LeftMargin:        300,
			RightMargin:       160,
			MinSpeechDuration: 200,
		},
		KWS: KWSConfig{
			Keywords:    []Keyword{{Text: "hello voice"}},
			Sensitivity: 1,
		},
		ASR:    ASRConfig{Sensitivity: 1},
		Common: CommonConfig{Timeout: 10},
	}
}

// Validate checks limits the encoding cannot represent.
func (c *Config) Validate() error {
	if len(c.KWS.Keywords) > MaxKeywords {
		return api.NewError(api.ErrCodeInvalidArgument, "too many keywords").
			WithContext("count", len(c.KWS.Keywords)).
			WithContext("max", MaxKeywords).
			Wrap(api.ErrInvalidArgument)
	}
	for i, kw := range c.KWS.Keywords {
		if kw.Text == "" {
			return fmt.Errorf("keyword %d is empty: %w", i, api.ErrInvalidArgument)
		}
	}
	return nil
}

// Encode appends the record to p.
func (c *Config) Encode(p *parcel.Parcel) error {
	if err := c.Validate(); err != nil {
		return err
	}
	w := encoder{p: p, ok: true}
	a := &c.AFE
	w.i32(a.MicArray)
	w.i32(a.RefNum)
	w.i32(a.SampleRate)
	w.i32(a.FrameSize)
	w.i32(a.Mode)
	w.bool(a.EnableAEC)
	w.bool(a.EnableNS)
	w.bool(a.EnableAGC)
	w.bool(a.EnableSSL)
	w.i32(a.AECMode)
	w.i32(a.AECEnableThreshold)
	w.bool(a.EnableRES)
	w.i32(a.AECCost)
	w.i32(a.RESAggressiveMode)
	w.i32(a.NSMode)
	w.i32(a.NSCostMode)
	w.i32(a.NSAggressiveMode)
	w.i32(a.AGCFixedGain)
	w.bool(a.EnableAdaptiveAGC)
	w.f32(a.SSLResolution)
	w.i32(a.SSLMinHz)
	w.i32(a.SSLMaxHz)

	w.i32(c.VAD.Sensitivity)
	w.u32(c.VAD.LeftMargin)
	w.u32(c.VAD.RightMargin)
	w.u32(c.VAD.MinSpeechDuration)

	w.ok = w.ok && p.WriteInt8(int8(len(c.KWS.Keywords)))
	for _, kw := range c.KWS.Keywords {
		w.ok = w.ok && p.WriteCString(kw.Text)
		w.f32(kw.Threshold)
	}
	w.i32(c.KWS.Sensitivity)
	w.i32(c.KWS.Mode)
	w.bool(c.KWS.EnableAgeGender)

	w.i32(c.ASR.Sensitivity)

	w.i32(c.Common.Timeout)
	w.i32(c.Common.MemoryAllocMode)

	if !w.ok {
		return api.NewError(api.ErrCodeResourceExhausted, "config does not fit parcel").
			WithContext("max_capacity", p.MaxCapacity()).
			Wrap(api.ErrResourceExhausted)
	}
	return nil
}

// EncodeBytes encodes c into a fresh unbounded parcel and returns its bytes.
func (c *Config) EncodeBytes() ([]byte, error) {
	p := parcel.New(parcel.WithMaxCapacity(0))
	defer p.Destroy()
	if err := c.Encode(p); err != nil {
		return nil, err
	}
	return append([]byte(nil), p.Bytes()...), nil
}

// encoder stops writing after the first failure.
type encoder struct {
	p  *parcel.Parcel
	ok bool
}

func (w *encoder) i32(v int32) {
	if w.ok {
		w.ok = w.p.WriteInt32(v)
	}
}

func (w *encoder) u32(v uint32) {
	if w.ok {
		w.ok = w.p.WriteUint32(v)
	}
}

func (w *encoder) f32(v float32) {
	if w.ok {
		w.ok = w.p.WriteFloat32(v)
	}
}

func (w *encoder) bool(v bool) {
	if w.ok {
		w.ok = w.p.WriteBool(v)
	}
}

// DecodeConfig reads a record from the read cursor of p. Nothing is read
// after the first shortfall, so a truncated record always reports
// api.ErrShortRead.
func DecodeConfig(p *parcel.Parcel) (*Config, error) {
	c := &Config{}
	r := &decoder{p: p, ok: true}
	a := &c.AFE
	r.i32(&a.MicArray)
	r.i32(&a.RefNum)
	r.i32(&a.SampleRate)
	r.i32(&a.FrameSize)
	r.i32(&a.Mode)
	r.bool(&a.EnableAEC)
	r.bool(&a.EnableNS)
	r.bool(&a.EnableAGC)
	r.bool(&a.EnableSSL)
	r.i32(&a.AECMode)
	r.i32(&a.AECEnableThreshold)
	r.bool(&a.EnableRES)
	r.i32(&a.AECCost)
	r.i32(&a.RESAggressiveMode)
	r.i32(&a.NSMode)
	r.i32(&a.NSCostMode)
	r.i32(&a.NSAggressiveMode)
	r.i32(&a.AGCFixedGain)
	r.bool(&a.EnableAdaptiveAGC)
	r.f32(&a.SSLResolution)
	r.i32(&a.SSLMinHz)
	r.i32(&a.SSLMaxHz)

	r.i32(&c.VAD.Sensitivity)
	r.u32(&c.VAD.LeftMargin)
	r.u32(&c.VAD.RightMargin)
	r.u32(&c.VAD.MinSpeechDuration)
	if !r.ok {
		return nil, corrupt(p, "config truncated")
	}

	n, ok := parcel.Read[int8](p)
	if !ok {
		return nil, corrupt(p, "keyword count missing")
	}
	if n < 0 || n > MaxKeywords {
		return nil, api.NewError(api.ErrCodeCorrupt, "keyword count out of range").
			WithContext("count", n).
			Wrap(api.ErrInvalidArgument)
	}
	if n > 0 {
		c.KWS.Keywords = make([]Keyword, n)
	}
	for i := range c.KWS.Keywords {
		text, ok := p.ReadCString()
		if !ok {
			return nil, corrupt(p, "keyword text unterminated").WithContext("index", i)
		}
		c.KWS.Keywords[i].Text = text
		r.f32(&c.KWS.Keywords[i].Threshold)
		if !r.ok {
			return nil, corrupt(p, "config truncated").WithContext("index", i)
		}
	}
	r.i32(&c.KWS.Sensitivity)
	r.i32(&c.KWS.Mode)
	r.bool(&c.KWS.EnableAgeGender)

	r.i32(&c.ASR.Sensitivity)

	r.i32(&c.Common.Timeout)
	r.i32(&c.Common.MemoryAllocMode)

	if !r.ok {
		return nil, corrupt(p, "config truncated")
	}
	return c, nil
}

// decoder stops reading after the first shortfall.
type decoder struct {
	p  *parcel.Parcel
	ok bool
}

func (r *decoder) i32(v *int32) {
	if r.ok {
		*v, r.ok = parcel.Read[int32](r.p)
	}
}

func (r *decoder) u32(v *uint32) {
	if r.ok {
		*v, r.ok = parcel.Read[uint32](r.p)
	}
}

func (r *decoder) f32(v *float32) {
	if r.ok {
		*v, r.ok = parcel.Read[float32](r.p)
	}
}

func (r *decoder) bool(v *bool) {
	if r.ok {
		var n int32
		n, r.ok = parcel.Read[int32](r.p)
		*v = n != 0
	}
}

func corrupt(p *parcel.Parcel, msg string) *api.Error {
	return api.NewError(api.ErrCodeCorrupt, msg).
		WithContext("offset", p.ReadCursor()).
		WithContext("size", p.Len()).
		Wrap(api.ErrShortRead)
}
