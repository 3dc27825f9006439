package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	polyclock "github.com/cbegin/polyclock-go"
	"github.com/cbegin/polyclock-go/internal/clock"
	"github.com/cbegin/polyclock-go/internal/ensemble"
	"github.com/cbegin/polyclock-go/internal/samples"
)

const RenderDescription = `Renders a set of clocks offline, without an audio device, and writes the
mix as a 32-bit float WAV file.

Each --clock is sample:length:beats. For example kick:4:0,2 plays the kick on
beats 0 and 2 of a four beat loop, and rim:3:0,1,2 plays the rim on every beat
of a three beat loop against it. Beats snap to the clock's default grid.`

var (
	renderSeconds float64
	renderOutput  string
	renderTempo   int
	renderClocks  cli.StringSlice
	renderNoBus   bool

	defaultRenderClocks = []string{
		"kick:4:0,2",
		"hihat_closed:4:0.5,1.5,2.5,3.5",
		"rim:3:0,1,2",
	}

	renderFlags = []cli.Flag{
		cli.Float64Flag{
			Name:        "seconds, s",
			Usage:       "length of the render in seconds",
			Value:       8,
			Destination: &renderSeconds,
		},
		cli.StringFlag{
			Name:        "output, o",
			Usage:       "WAV file to write",
			Value:       "polyclock.wav",
			Destination: &renderOutput,
		},
		cli.IntFlag{
			Name:        "tempo, t",
			Usage:       "tempo in bpm (default: last tempo from config)",
			Destination: &renderTempo,
		},
		cli.StringSliceFlag{
			Name:  "clock, c",
			Usage: "clock as sample:length:beats, repeatable",
			Value: &renderClocks,
		},
		cli.BoolFlag{
			Name:        "no-bus",
			Usage:       "bypass the master bus compressor",
			Destination: &renderNoBus,
		},
	}
)

type clockSpec struct {
	sample string
	length int
	beats  []float64
}

func parseClockSpec(s string) (clockSpec, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return clockSpec{}, fmt.Errorf("clock %q: want sample:length:beats", s)
	}
	spec := clockSpec{sample: strings.TrimSpace(parts[0])}
	if spec.sample == "" {
		return clockSpec{}, fmt.Errorf("clock %q: missing sample", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || n < 1 || n > clock.MaxLength {
		return clockSpec{}, fmt.Errorf("clock %q: length must be 1..%d", s, clock.MaxLength)
	}
	spec.length = n
	for _, f := range strings.Split(parts[2], ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		b, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return clockSpec{}, fmt.Errorf("clock %q: bad beat %q", s, f)
		}
		spec.beats = append(spec.beats, b)
	}
	return spec, nil
}

func parseClockSpecs(args []string, store *samples.Store) ([]clockSpec, error) {
	specs := make([]clockSpec, 0, len(args))
	for _, a := range args {
		spec, err := parseClockSpec(a)
		if err != nil {
			return nil, err
		}
		if store.Get(spec.sample) == nil {
			return nil, fmt.Errorf("clock %q: unknown sample %q (have %s)", a, spec.sample, strings.Join(store.Names(), ", "))
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func render(ctx *cli.Context) error {
	if renderSeconds <= 0 {
		return errors.New("--seconds must be positive")
	}
	cfg, store, err := setup()
	if err != nil {
		return err
	}
	if renderTempo > 0 {
		cfg.UI.LastTempo = renderTempo
	}

	args := []string(renderClocks)
	if len(args) == 0 {
		args = defaultRenderClocks
	}
	specs, err := parseClockSpecs(args, store)
	if err != nil {
		return err
	}

	engine, err := polyclock.NewEngine(
		polyclock.WithConfig(cfg),
		polyclock.WithSamples(store),
		polyclock.WithBus(cfg.Audio.BusCompressor && !renderNoBus),
	)
	if err != nil {
		return err
	}
	engine.Do(func(ens *ensemble.Ensemble) {
		for i, spec := range specs {
			x := clock.DefaultRadius * (1.5 + 2.5*float64(i))
			c := ens.AddClock(x, 2*clock.DefaultRadius,
				clock.WithLength(spec.length),
				clock.WithSample(spec.sample),
			)
			c.SetBeats(spec.beats)
		}
	})

	out := engine.Advance(renderSeconds)
	if err := polyclock.WriteWAV(afero.NewOsFs(), renderOutput, out, engine.SampleRate()); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%.1fs, %d clocks, %.0fbpm)\n", renderOutput, renderSeconds, len(specs), engine.Tempo())
	return nil
}
