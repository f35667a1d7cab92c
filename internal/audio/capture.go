package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// Source is a tap producing live audio buffers. Start installs the tap
// and begins the hardware; the returned channel delivers fixed-size
// chunks until Stop removes the tap, after which the channel is closed.
type Source interface {
	// Format is the native format buffers will carry.
	Format() Format
	// Start installs the tap. A second Start before Stop is rejected.
	Start() (<-chan *Buffer, error)
	// Stop removes the tap and stops the hardware. Idempotent.
	Stop() error
}

// Capturer taps the default microphone through an acquired Session,
// delivering chunks of chunkFrames frames in the device's configured
// format. At most one tap is active per Capturer.
type Capturer struct {
	session     *Session
	format      Format
	chunkFrames uint32

	mu      sync.Mutex
	device  *malgo.Device
	out     chan *Buffer
	pending []float32
	tapped  bool
}

// NewCapturer creates a capturer bound to the given session. The session
// must be acquired before Start is called.
func NewCapturer(session *Session, format Format, chunkFrames uint32) *Capturer {
	if chunkFrames == 0 {
		chunkFrames = DefaultChunkFrames
	}
	return &Capturer{
		session:     session,
		format:      format,
		chunkFrames: chunkFrames,
	}
}

// Format returns the capture format.
func (c *Capturer) Format() Format { return c.format }

// Start installs the microphone tap and starts the capture hardware.
// Failure here is fatal to the recording session and is not retried;
// the caller must tear down and start a new session.
func (c *Capturer) Start() (<-chan *Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tapped {
		return nil, errors.New("audio: tap already installed")
	}

	backendCtx, err := c.session.context()
	if err != nil {
		return nil, err
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = c.format.Channels
	deviceCfg.SampleRate = c.format.SampleRate
	deviceCfg.PeriodSizeInFrames = c.chunkFrames

	callbacks := malgo.DeviceCallbacks{
		Data: c.onData,
	}

	device, err := malgo.InitDevice(backendCtx, deviceCfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("audio: preparing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("audio: starting capture device: %w", err)
	}

	c.device = device
	c.out = make(chan *Buffer, 8)
	c.pending = c.pending[:0]
	c.tapped = true
	return c.out, nil
}

// Stop removes the tap and closes the buffer channel. Safe to call when
// no tap is installed.
func (c *Capturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tapped {
		return nil
	}
	c.tapped = false

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	close(c.out)
	c.out = nil
	c.pending = nil
	return nil
}

// onData accumulates device callback frames and emits full chunks.
// Runs on the backend's capture thread.
func (c *Capturer) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*c.format.Channels)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tapped {
		return
	}

	c.pending = append(c.pending, samples...)
	chunkSamples := int(c.chunkFrames * c.format.Channels)
	for len(c.pending) >= chunkSamples {
		buf := &Buffer{
			Format:  c.format,
			Samples: append([]float32(nil), c.pending[:chunkSamples]...),
		}
		c.pending = c.pending[chunkSamples:]
		select {
		case c.out <- buf:
		default:
			// Consumer stalled past the channel's slack; drop rather
			// than block the capture thread.
		}
	}
}

// bytesToFloat32 converts raw little-endian float32 bytes to samples.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
