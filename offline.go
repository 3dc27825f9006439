package polyclock

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spf13/afero"
)

// offlineBlock matches a typical device callback so poll timing in offline
// renders resembles real-time playback.
const offlineBlock = 128

// Advance renders seconds of audio without an output device, running the
// loop before every block. The result is deterministic for a given sequence
// of calls. It must not be used while Start is running.
func (e *Engine) Advance(seconds float64) []float32 {
	frames := int(seconds*float64(e.sampleRate) + 0.5)
	out := make([]float32, frames*2)
	for off := 0; off < frames; off += offlineBlock {
		n := offlineBlock
		if frames-off < n {
			n = frames - off
		}
		e.loop.RunDue()
		e.backend.Process(out[2*off : 2*(off+n)])
	}
	e.loop.RunDue()
	return out
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

// WriteWAV encodes interleaved stereo samples and writes them to path.
func WriteWAV(fs afero.Fs, path string, samples []float32, sampleRate int) error {
	if err := afero.WriteFile(fs, path, EncodeWAVFloat32LE(samples, sampleRate, 2), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
