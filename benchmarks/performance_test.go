// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for voicering components.

package benchmarks

import (
	"sync"
	"testing"

	"github.com/momentics/voicering/api"
	"github.com/momentics/voicering/core/parcel"
	"github.com/momentics/voicering/core/ring"
	"github.com/momentics/voicering/pool"
	"github.com/momentics/voicering/voice"
)

// BenchmarkBytePoolAcquire tests size-classed pool reuse under contention.
func BenchmarkBytePoolAcquire(b *testing.B) {
	bp := pool.NewBytePool(pool.DefaultClassDepth)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := bp.Acquire(voice.FrameBytes)
			bp.Release(buf)
		}
	})
}

// BenchmarkRingFrameRoundTrip writes and reads one mic frame per iteration.
func BenchmarkRingFrameRoundTrip(b *testing.B) {
	local, err := ring.NewLocal(1 << 16)
	if err != nil {
		b.Fatal(err)
	}
	coherent, err := ring.NewCoherent(1<<16, ring.NewCoherentPolicy(nil))
	if err != nil {
		b.Fatal(err)
	}
	for _, bc := range []struct {
		name string
		r    api.ByteRing
	}{
		{"local", local},
		{"coherent", coherent},
	} {
		b.Run(bc.name, func(b *testing.B) {
			in := make([]byte, voice.FrameBytes)
			out := make([]byte, voice.FrameBytes)
			b.SetBytes(voice.FrameBytes)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				bc.r.Write(in)
				bc.r.Read(out)
			}
		})
	}
}

// BenchmarkRingSPSC streams frames between a producer and a consumer goroutine.
func BenchmarkRingSPSC(b *testing.B) {
	r, err := ring.NewLocal(1 << 16)
	if err != nil {
		b.Fatal(err)
	}
	frame := make([]byte, voice.FrameBytes)
	b.SetBytes(voice.FrameBytes)
	b.ResetTimer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		out := make([]byte, voice.FrameBytes)
		for n := 0; n < b.N; {
			if r.Read(out) != 0 {
				n++
			}
		}
	}()
	for n := 0; n < b.N; {
		if r.Write(frame) != 0 {
			n++
		}
	}
	wg.Wait()
}

// BenchmarkParcelScalars measures aligned scalar encode and decode.
func BenchmarkParcelScalars(b *testing.B) {
	p := parcel.New()
	for i := 0; i < b.N; i++ {
		p.Destroy()
		p.WriteInt8(1)
		p.WriteInt64(2)
		p.WriteFloat32(3)
		p.WriteCString("keyword")
		p.ReadInt8()
		p.ReadInt64()
		p.ReadFloat32()
		p.ReadCString()
	}
}

// BenchmarkConfigCodec round-trips the default voice config.
func BenchmarkConfigCodec(b *testing.B) {
	cfg := voice.DefaultConfig()
	p := parcel.New()
	for i := 0; i < b.N; i++ {
		p.Destroy()
		if err := cfg.Encode(p); err != nil {
			b.Fatal(err)
		}
		if _, err := voice.DecodeConfig(p); err != nil {
			b.Fatal(err)
		}
	}
}
