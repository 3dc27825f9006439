package samples

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/cbegin/polyclock-go/internal/audio"
	"github.com/cbegin/polyclock-go/internal/debug"
)

// LoadDir loads <dir>/<name>.wav for every kit name, followed by any other
// .wav files in dir sorted by name. Kit names without a file use the
// built-in clip. Decode failures also fall back to the built-in clip (extra
// files are skipped) and are returned together as one error; the store is
// always usable.
func LoadDir(fs afero.Fs, dir string, sampleRate int) (*Store, error) {
	var errs *multierror.Error
	clips := make([]*audio.Clip, 0, len(Kit))
	seen := make(map[string]bool, len(Kit))

	for _, name := range Kit {
		seen[name] = true
		path := filepath.Join(dir, name+".wav")
		clip, err := LoadFile(fs, path, name, sampleRate)
		switch {
		case err == nil:
			debug.Log("samples", "loaded %s (%d frames)", path, clip.Frames())
		case os.IsNotExist(err):
			clip = BuiltinClip(name, sampleRate)
		default:
			errs = multierror.Append(errs, err)
			clip = BuiltinClip(name, sampleRate)
		}
		clips = append(clips, clip)
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil && !os.IsNotExist(err) {
		errs = multierror.Append(errs, fmt.Errorf("read sample dir: %w", err))
	}
	var extra []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".wav") {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if !seen[base] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		clip, err := LoadFile(fs, filepath.Join(dir, name), base, sampleRate)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		clips = append(clips, clip)
	}

	return NewStore(clips...), errs.ErrorOrNil()
}

// LoadFile decodes one WAV file into a clip at sampleRate.
func LoadFile(fs afero.Fs, path, name string, sampleRate int) (*audio.Clip, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stream, err := wav.DecodeF32(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	raw, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("decode %s: no audio frames", path)
	}
	samples = samples[:len(samples)&^1]
	if from := stream.SampleRate(); from != sampleRate {
		samples = resampleStereo(samples, from, sampleRate)
	}
	return &audio.Clip{Name: name, Samples: samples}, nil
}

// resampleStereo converts interleaved stereo between rates with linear
// interpolation; clips are short one-shots so quality demands are modest.
func resampleStereo(in []float32, from, to int) []float32 {
	if from <= 0 || to <= 0 || from == to {
		return in
	}
	inFrames := len(in) / 2
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make([]float32, outFrames*2)
	step := float64(from) / float64(to)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		j := int(pos)
		frac := float32(pos - float64(j))
		k := j + 1
		if k >= inFrames {
			k = inFrames - 1
		}
		out[2*i] = in[2*j] + (in[2*k]-in[2*j])*frac
		out[2*i+1] = in[2*j+1] + (in[2*k+1]-in[2*j+1])*frac
	}
	return out
}
