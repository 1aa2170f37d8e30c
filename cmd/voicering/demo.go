// File: cmd/voicering/demo.go
// Author: momentics <momentics@gmail.com>
//
// demo: a synthetic producer writes tone bursts into a Coherent mic ring
// placed in a shared memory segment; the voice agent runs the meter engine
// on it and logs the events it would send to a host.

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"go.uber.org/zap"

	"github.com/momentics/voicering/control"
	"github.com/momentics/voicering/core/cache"
	"github.com/momentics/voicering/core/ring"
	"github.com/momentics/voicering/core/shm"
	"github.com/momentics/voicering/voice"
)

// Demo config keys, flattened from YAML.
const (
	keyRingCapacity = "ring.capacity"
	keyFlow         = "agent.flow"
	keyCPU          = "agent.cpu"
	keyVoiceConfig  = "agent.voice_config"
	keyResource     = "agent.resource"
	keyBurst        = "producer.burst"
	keyPeriod       = "producer.period"
	keyLogLevel     = "log.level"
)

const metricWriteRejects = "ring.write.rejects"

type demoOptions struct {
	configPath string
	duration   time.Duration
	watch      bool
	capacity   string
	flow       string
	cpu        int
	segment    string
}

func runDemo(args []string, stdout io.Writer) error {
	var common commonFlags
	var o demoOptions
	fs := newFlagSet("demo", &common)
	fs.StringVarP(&o.configPath, "config", "c", "", "demo YAML config")
	fs.DurationVarP(&o.duration, "duration", "d", 5*time.Second, "run time, 0 runs until interrupted")
	fs.BoolVar(&o.watch, "watch", false, "reload the config file on change")
	fs.StringVar(&o.capacity, "ring", "", "mic ring capacity, e.g. 64KiB (overrides config)")
	fs.StringVar(&o.flow, "flow", "", "engine flow (overrides config)")
	fs.IntVar(&o.cpu, "cpu", -1, "pin the frame loop to this CPU")
	fs.StringVar(&o.segment, "segment", "", "shared segment name (random when empty)")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	logger, level, err := newLogger(&common)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctl := control.New()
	if o.configPath != "" {
		vals, err := control.LoadYAMLFile(o.configPath)
		if err != nil {
			return err
		}
		ctl.SetConfig(vals)
	}
	overrides := map[string]any{}
	if o.capacity != "" {
		overrides[keyRingCapacity] = o.capacity
	}
	if o.flow != "" {
		overrides[keyFlow] = o.flow
	}
	if len(overrides) > 0 {
		ctl.SetConfig(overrides)
	}
	store := ctl.Config()

	capacity, err := store.Size(keyRingCapacity, 64*units.KiB)
	if err != nil {
		return err
	}
	if capacity <= 0 || capacity > math.MaxUint32 || capacity&(capacity-1) != 0 {
		return fmt.Errorf("ring capacity %s is not a power of two", units.BytesSize(float64(capacity)))
	}
	flow, err := voice.ParseFlow(store.String(keyFlow, "full"))
	if err != nil {
		return err
	}
	poll, err := store.Duration(voice.ConfigPollInterval, voice.DefaultPollInterval)
	if err != nil {
		return err
	}
	vcfg, err := loadVoiceConfig(store.String(keyVoiceConfig, ""))
	if err != nil {
		return err
	}
	rawCfg, err := vcfg.EncodeBytes()
	if err != nil {
		return err
	}
	var resource []byte
	if path := store.String(keyResource, ""); path != "" {
		if resource, err = voice.LoadResourceFile(path); err != nil {
			return err
		}
	}
	burst, err := store.Duration(keyBurst, 500*time.Millisecond)
	if err != nil {
		return err
	}
	period, err := store.Duration(keyPeriod, 2*time.Second)
	if err != nil {
		return err
	}
	cpu := o.cpu
	if v, ok := store.Get(keyCPU); ok && cpu < 0 {
		if n, ok := v.(int); ok {
			cpu = n
		}
	}

	name := o.segment
	if name == "" {
		name = shm.NewName()
	}
	seg, err := shm.Create(name, ring.RegionSize(uint32(capacity)))
	if err != nil {
		return err
	}
	defer seg.Close()

	msync := &cache.Msync{}
	mic, err := ring.Place(seg.Bytes(), uint32(capacity), ring.NewCoherentPolicy(msync), nil)
	if err != nil {
		return err
	}
	ctl.Probes().RegisterRing("ring.producer", mic)
	logger.Info("mic ring placed",
		zap.String("segment", seg.Name()),
		zap.String("path", seg.Path()),
		zap.String("capacity", units.BytesSize(float64(capacity))))

	agent, err := voice.New(voice.Options{
		Notifier:     &logNotifier{log: logger.Named("host")},
		Factory:      voice.NewMeterEngine,
		Maintainer:   msync,
		PollInterval: poll,
		PinCPU:       cpu >= 0,
		CPU:          cpu,
		Control:      ctl,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}
	if o.watch && o.configPath != "" {
		control.RegisterReloadHook(logLevelHook(store, level, logger))
		onErr := func(err error) { logger.Warn("config reload failed", zap.Error(err)) }
		if err := control.WatchConfigFile(ctx, o.configPath, store, onErr); err != nil {
			return err
		}
		logger.Info("watching config", zap.String("path", o.configPath))
	}

	if err := agent.Ready(ctx); err != nil {
		return err
	}
	// The segment is mapped a second time for the agent, as a peer process would.
	peer, err := shm.Open(name)
	if err != nil {
		return err
	}
	err = agent.Create(ctx, voice.CreateParams{
		UserData:   1,
		Flow:       flow,
		MicRegion:  peer.Bytes(),
		ReleaseMic: peer.Close,
		Config:     rawCfg,
		Resource:   resource,
	})
	if err != nil {
		peer.Close()
		return err
	}
	if err := agent.Start(ctx); err != nil {
		agent.Destroy()
		return err
	}

	produce(ctx, mic, ctl.Metrics().Counter(metricWriteRejects).Add, burst, period)

	if err := agent.Destroy(); err != nil {
		logger.Warn("agent destroy", zap.Error(err))
	}
	if n := msync.Errors(); n > 0 {
		logger.Warn("msync rejected calls", zap.Uint64("count", n))
	}
	return writeAs(stdout, "yaml", map[string]any{
		"metrics": ctl.Stats(),
		"probes":  ctl.Probes().DumpState(),
	})
}

// produce writes one frame per frame period until ctx is done. Frames carry
// a 440 Hz tone for burst out of every period and silence otherwise.
func produce(ctx context.Context, mic *ring.Ring[ring.Coherent], reject func(uint64) uint64, burst, period time.Duration) {
	frame := make([]byte, voice.FrameBytes)
	tick := time.NewTicker(voice.FrameMillis * time.Millisecond)
	defer tick.Stop()
	start := time.Now()
	var sample int
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			loud := period > 0 && now.Sub(start)%period < burst
			fillTone(frame, &sample, loud)
			if mic.Write(frame) == 0 {
				reject(1)
			}
		}
	}
}

func fillTone(frame []byte, sample *int, loud bool) {
	const amp = 4000
	stride := voice.FrameChannels * voice.SampleBytes
	for i := 0; i < len(frame); i += stride {
		var v int16
		if loud {
			v = int16(amp * math.Sin(2*math.Pi*440*float64(*sample)/voice.SampleRate))
		}
		*sample++
		for ch := 0; ch < voice.FrameChannels; ch++ {
			binary.LittleEndian.PutUint16(frame[i+ch*voice.SampleBytes:], uint16(v))
		}
	}
}

// logNotifier stands in for the host side of the notify channel.
type logNotifier struct {
	log *zap.Logger
}

func (n *logNotifier) NotifyMsg(_ context.Context, msg voice.Message) error {
	if msg.Type == voice.EventAFE {
		if f, err := voice.DecodeAFE(msg.Payload); err == nil {
			n.log.Debug("afe frame", zap.Int32("channels", f.Channels), zap.String("info", f.JSON))
			return nil
		}
	}
	n.log.Info("event",
		zap.Stringer("type", msg.Type),
		zap.Uint32("user_data", msg.UserData),
		zap.ByteString("payload", msg.Payload))
	return nil
}

func (n *logNotifier) NotifyState(_ context.Context, kind voice.StateKind, data uint32) error {
	n.log.Info("state", zap.Stringer("kind", kind), zap.Uint32("data", data))
	return nil
}
