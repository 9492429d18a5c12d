package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// decodeWAV reads a WAV file via go-audio/wav and returns one float64
// sample slice per channel, plus the file's native sample rate.
func decodeWAV(path string) (channels [][]float64, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: opening wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("audio: %s is not a valid wav file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: reading wav pcm: %w", err)
	}

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		numChannels = 1
	}
	sampleRate = buf.Format.SampleRate

	channels = make([][]float64, numChannels)
	frames := len(buf.Data) / numChannels
	for c := range channels {
		channels[c] = make([]float64, frames)
	}

	maxAmp := float64(maxIntForBitDepth(decoder.BitDepth))
	for i, raw := range buf.Data {
		c := i % numChannels
		frame := i / numChannels
		if frame >= frames {
			break
		}
		channels[c][frame] = float64(raw) / maxAmp
	}

	return channels, sampleRate, nil
}

func maxIntForBitDepth(bitDepth uint16) int {
	if bitDepth == 0 {
		bitDepth = 16
	}
	return 1 << (bitDepth - 1)
}
