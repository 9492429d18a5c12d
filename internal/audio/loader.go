// Package audio implements the audio loader (C1): decoding an arbitrary
// audio file down to mono PCM at the fixed analysis sample rate.
package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Sample is a decoded, mono, analysis-rate audio clip.
type Sample struct {
	Data       []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (s Sample) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Data)) / float64(s.SampleRate)
}

// Load decodes path to mono PCM and resamples it to targetSampleRate.
// WAV and MP3 are decoded natively; anything else is normalised through
// ffmpeg first. Channel mixing is a straight average of all channels.
func Load(path string, targetSampleRate int) (Sample, error) {
	channels, sourceRate, err := decodeNative(path)
	if err != nil {
		return Sample{}, err
	}

	mono := downmix(channels)
	resampled := resampleLinear(mono, sourceRate, targetSampleRate)

	return Sample{Data: resampled, SampleRate: targetSampleRate}, nil
}

// Resample wraps a raw mono sample slice captured at sourceRate (e.g.
// from a live microphone feed) into a Sample at targetRate, sharing the
// same linear interpolation Load uses for decoded files.
func Resample(mono []float64, sourceRate, targetRate int) Sample {
	return Sample{Data: resampleLinear(mono, sourceRate, targetRate), SampleRate: targetRate}
}

func decodeNative(path string) (channels [][]float64, sampleRate int, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(path)
	case ".mp3":
		return decodeMP3(path)
	default:
		wavPath, err := ConvertToWAV(path, 1)
		if err != nil {
			return nil, 0, fmt.Errorf("audio: decode %s: %w", path, err)
		}
		return decodeWAV(wavPath)
	}
}

// downmix averages all channels into one.
func downmix(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	if len(channels) == 1 {
		return channels[0]
	}

	frames := len(channels[0])
	for _, c := range channels {
		if len(c) < frames {
			frames = len(c)
		}
	}

	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for _, c := range channels {
			sum += c[i]
		}
		mono[i] = sum / float64(len(channels))
	}
	return mono
}

// resampleLinear resamples input from sourceRate to targetRate with
// linear interpolation. The DSP pipeline only consumes band-wise maxima
// of the resulting spectrogram, so interpolation error here does not
// propagate into peak coordinates the way it would for waveform playback.
func resampleLinear(input []float64, sourceRate, targetRate int) []float64 {
	if sourceRate <= 0 || targetRate <= 0 || sourceRate == targetRate || len(input) == 0 {
		return input
	}

	ratio := float64(sourceRate) / float64(targetRate)
	outputLen := int(float64(len(input)) / ratio)
	output := make([]float64, outputLen)

	for i := 0; i < outputLen; i++ {
		srcPos := float64(i) * ratio
		lo := int(srcPos)
		hi := lo + 1
		frac := srcPos - float64(lo)

		if hi >= len(input) {
			output[i] = input[lo]
			continue
		}
		output[i] = input[lo]*(1-frac) + input[hi]*frac
	}

	return output
}
