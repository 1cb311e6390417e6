package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// malgoCapturer is a Capturer backed by one malgo capture-only device,
// opened fresh per session and torn down on Stop. It never touches
// playback: this system only ever records, it never plays audio back.
type malgoCapturer struct {
	device *malgo.Device

	samples chan []byte
	errs    chan error

	stopOnce sync.Once
}

// NewMalgoCapturerFactory builds a CapturerFactory that opens a capture-only
// malgo device at the fixed 16kHz mono S16 format for each session,
// matching the device lifecycle (InitContext/InitDevice/Start/Uninit) the
// teacher wires for its duplex stream, narrowed to capture-only.
func NewMalgoCapturerFactory(mctx *malgo.AllocatedContext) CapturerFactory {
	return func(cfg LineConfig) (Capturer, error) {
		deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
		deviceConfig.Capture.Format = malgo.FormatS16
		deviceConfig.Capture.Channels = Channels
		deviceConfig.SampleRate = SampleRateHz
		deviceConfig.Alsa.NoMMap = 1
		if cfg.DeviceName != "" {
			if id, err := resolveCaptureDeviceID(mctx, cfg.DeviceName); err == nil {
				deviceConfig.Capture.DeviceID = id
			}
		}

		c := &malgoCapturer{
			samples: make(chan []byte, 64),
			errs:    make(chan error, 1),
		}

		onSamples := func(pOutput, pInput []byte, frameCount uint32) {
			if len(pInput) == 0 {
				return
			}
			chunk := make([]byte, len(pInput))
			copy(chunk, pInput)
			select {
			case c.samples <- chunk:
			default:
				// Consumer is behind; drop this chunk rather than block the
				// audio callback thread.
			}
		}

		device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
		if err != nil {
			return nil, fmt.Errorf("audio: initializing capture device: %w", err)
		}
		if err := device.Start(); err != nil {
			device.Uninit()
			return nil, fmt.Errorf("audio: starting capture device: %w", err)
		}

		c.device = device
		return c, nil
	}
}

func (c *malgoCapturer) Samples() <-chan []byte { return c.samples }
func (c *malgoCapturer) Errors() <-chan error   { return c.errs }

func (c *malgoCapturer) Stop() error {
	c.stopOnce.Do(func() {
		c.device.Uninit()
	})
	return nil
}

// resolveCaptureDeviceID finds a capture device whose name matches
// deviceName exactly. It returns an error when no device matches; the
// factory then leaves DeviceID unset, which selects the system default.
func resolveCaptureDeviceID(mctx *malgo.AllocatedContext, deviceName string) (malgo.DeviceID, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, err
	}
	for _, info := range infos {
		if info.Name() == deviceName {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("audio: no capture device named %q", deviceName)
}
