// File: voice/event.go
// Author: momentics <momentics@gmail.com>
//
// Self-contained encoding of AFE output frames for the notify buffer.

package voice

import (
	"fmt"
	"strings"

	"github.com/momentics/voicering/api"
	"github.com/momentics/voicering/core/parcel"
	"github.com/momentics/voicering/pool"
)

// AFEFrame is one processed front-end frame. Samples holds MonoFrameBytes
// of 16-bit PCM; JSON carries engine side information.
type AFEFrame struct {
	Channels int32
	Samples  []byte
	JSON     string
}

var afeParcels = pool.NewSyncPool(
	func() *parcel.Parcel { return parcel.New(parcel.WithMaxCapacity(NotifyBufferSize)) },
	func(p *parcel.Parcel) { p.Reset() },
)

// encodeAFE writes f into dst as {int32 channels, samples, cstring json}.
// It returns the encoded length.
func encodeAFE(dst []byte, f *AFEFrame) (int, error) {
	if len(f.Samples) != MonoFrameBytes {
		return 0, fmt.Errorf("afe frame has %d bytes, want %d: %w", len(f.Samples), MonoFrameBytes, api.ErrInvalidArgument)
	}
	if strings.IndexByte(f.JSON, 0) >= 0 {
		return 0, fmt.Errorf("afe json contains NUL: %w", api.ErrInvalidArgument)
	}
	p := afeParcels.Get()
	defer afeParcels.Put(p)
	if !p.WriteInt32(f.Channels) || !p.WriteBuffer(f.Samples) || !p.WriteCString(f.JSON) {
		return 0, ErrEventTooLarge
	}
	if p.Len() > len(dst) {
		return 0, ErrEventTooLarge
	}
	return copy(dst, p.Bytes()), nil
}

// DecodeAFE parses a payload produced for an EventAFE message. The result
// does not alias payload.
func DecodeAFE(payload []byte) (*AFEFrame, error) {
	p := parcel.FromBytes(payload, nil)
	defer p.Destroy()
	ch, ok := parcel.Read[int32](p)
	if !ok {
		return nil, fmt.Errorf("afe payload: channels: %w", api.ErrShortRead)
	}
	samples, ok := p.ReadBuffer(MonoFrameBytes)
	if !ok {
		return nil, fmt.Errorf("afe payload: samples: %w", api.ErrShortRead)
	}
	js, ok := p.ReadCString()
	if !ok {
		return nil, fmt.Errorf("afe payload: json unterminated: %w", api.ErrShortRead)
	}
	return &AFEFrame{
		Channels: ch,
		Samples:  append([]byte(nil), samples...),
		JSON:     js,
	}, nil
}
