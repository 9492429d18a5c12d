// Package recorder captures audio from the default input device for a
// fixed duration and hands it back as query-ready mono PCM.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"shazoom/internal/audio"
	"shazoom/internal/logging"
)

// Capture records from the default input device for duration and
// returns the result resampled to targetSampleRate, ready to feed into
// the same spectrogram stage a file-based query uses.
func Capture(ctx context.Context, duration time.Duration, targetSampleRate int) (audio.Sample, error) {
	if err := portaudio.Initialize(); err != nil {
		return audio.Sample{}, fmt.Errorf("recorder: initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return audio.Sample{}, fmt.Errorf("recorder: no default input device: %w", err)
	}

	sampleRate := device.DefaultSampleRate
	if sampleRate < 22050 {
		sampleRate = 44100
	}

	const framesPerBuffer = 2048
	buffer := make([]int16, framesPerBuffer)

	params := portaudio.HighLatencyParameters(device, nil)
	params.Input.Channels = 1
	params.SampleRate = sampleRate
	params.FramesPerBuffer = framesPerBuffer

	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return audio.Sample{}, fmt.Errorf("recorder: opening stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return audio.Sample{}, fmt.Errorf("recorder: starting stream: %w", err)
	}
	defer stream.Stop()

	logging.Get().Info("recording started", "device", device.Name, "sample_rate", sampleRate, "duration", duration)

	var raw []int16
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return audio.Sample{}, ctx.Err()
		default:
		}
		if err := stream.Read(); err != nil {
			return audio.Sample{}, fmt.Errorf("recorder: reading stream: %w", err)
		}
		raw = append(raw, buffer...)
	}

	actualRate := int(stream.Info().SampleRate)
	samples := make([]float64, len(raw))
	for i, v := range raw {
		samples[i] = float64(v) / 32768.0
	}

	logging.Get().Info("recording finished", "samples", len(samples), "sample_rate", actualRate)

	return audio.Resample(samples, actualRate, targetSampleRate), nil
}
