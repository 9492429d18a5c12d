package audio

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ConvertToWAV shells out to ffmpeg to normalise an arbitrary audio
// container (FLAC, OGG, AAC, ...) to a mono/stereo PCM WAV file the
// decoders in this package can read natively. Kept for formats go-audio
// and go-mp3 don't cover; WAV and MP3 inputs skip this step entirely.
func ConvertToWAV(inputPath string, channels int) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("audio: input file does not exist: %w", err)
	}
	if channels < 1 || channels > 2 {
		channels = 1
	}

	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".converted.wav"

	cmd := exec.Command(
		"ffmpeg",
		"-y",
		"-i", inputPath,
		"-c", "pcm_s16le",
		"-ar", "44100",
		"-ac", fmt.Sprint(channels),
		outputPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("audio: ffmpeg conversion failed: %w, output: %s", err, output)
	}

	return outputPath, nil
}
