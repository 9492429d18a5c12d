package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// decodeMP3 reads an MP3 file via go-mp3, which always decodes to
// interleaved 16-bit stereo PCM regardless of the source channel count.
func decodeMP3(path string) (channels [][]float64, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: opening mp3: %w", err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: decoding mp3: %w", err)
	}
	sampleRate = decoder.SampleRate()

	var left, right []float64
	buf := make([]byte, 8192)
	for {
		n, readErr := decoder.Read(buf)
		for i := 0; i+3 < n; i += 4 {
			l := int16(binary.LittleEndian.Uint16(buf[i : i+2]))
			r := int16(binary.LittleEndian.Uint16(buf[i+2 : i+4]))
			left = append(left, float64(l)/32768.0)
			right = append(right, float64(r)/32768.0)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("audio: reading mp3 pcm: %w", readErr)
		}
	}

	return [][]float64{left, right}, sampleRate, nil
}
