package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/cbegin/polyclock-go/internal/config"
	"github.com/cbegin/polyclock-go/internal/debug"
	"github.com/cbegin/polyclock-go/internal/input"
	"github.com/cbegin/polyclock-go/internal/samples"
)

var (
	configPath string
	debugLog   string
	sampleDir  string
	sampleRate int

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config",
			Usage:       "config file (default: ~/.config/polyclock/config.json)",
			Destination: &configPath,
			EnvVar:      "POLYCLOCK_CONFIG",
		},
		cli.StringFlag{
			Name:        "debug-log",
			Usage:       "write a debug log to this file",
			Destination: &debugLog,
		},
		cli.StringFlag{
			Name:        "sample-dir",
			Usage:       "directory of .wav files overriding the built-in kit",
			Destination: &sampleDir,
		},
		cli.IntFlag{
			Name:        "sample-rate",
			Usage:       "output sample rate (default: from config, 48000)",
			Destination: &sampleRate,
		},
	}
)

// Execute runs the command line.
func Execute(args []string) error {
	app := cli.App{
		Name:      "polyclock",
		HelpName:  "polyclock",
		Usage:     "a polyrhythmic step sequencer",
		Version:   version,
		UsageText: "polyclock [global options] <command> [arguments...]",
		Flags:     globalFlags,
		Commands: []cli.Command{
			{
				Name:    "play",
				Aliases: []string{"p"},
				Usage:   "open the sequencer in the terminal",
				Action:  play,
				Flags:   playFlags,
			},
			{
				Name:        "render",
				Aliases:     []string{"r"},
				Usage:       "render clocks offline to a WAV file",
				Description: RenderDescription,
				Action:      render,
				Flags:       renderFlags,
			},
			{
				Name:   "samples",
				Usage:  "list the available samples",
				Action: listSamples,
			},
			{
				Name:   "midi-ports",
				Usage:  "list MIDI input ports",
				Action: listMIDIPorts,
			},
		},
		Action: play,
	}
	return app.Run(args)
}

// setup loads the config, applies global flags and loads the sample store.
func setup() (*config.Config, *samples.Store, error) {
	fs := afero.NewOsFs()
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(fs, configPath)
	} else {
		cfg, err = config.Load(fs)
	}
	if err != nil {
		return nil, nil, err
	}

	if debugLog == "" {
		debugLog = cfg.DebugLog
	}
	if debugLog != "" {
		if err := debug.EnableFile(debugLog); err != nil {
			return nil, nil, err
		}
	}
	if sampleRate > 0 {
		cfg.Audio.SampleRate = sampleRate
	}
	if sampleDir == "" {
		sampleDir = cfg.SampleDir
	}

	if sampleDir == "" {
		return cfg, samples.Builtin(cfg.Audio.SampleRate), nil
	}
	store, err := samples.LoadDir(fs, sampleDir, cfg.Audio.SampleRate)
	if err != nil {
		// the store falls back to built-in clips for whatever failed
		log.Printf("polyclock: some samples did not load: %v", err)
	}
	return cfg, store, nil
}

func saveConfig(cfg *config.Config) error {
	fs := afero.NewOsFs()
	if configPath != "" {
		return cfg.SaveTo(fs, configPath)
	}
	return cfg.Save(fs)
}

func listSamples(ctx *cli.Context) error {
	cfg, store, err := setup()
	if err != nil {
		return err
	}
	for _, clip := range store.Clips() {
		fmt.Printf("%-14s %.3fs\n", clip.Name, clip.Duration(cfg.Audio.SampleRate))
	}
	return nil
}

func listMIDIPorts(ctx *cli.Context) error {
	ports := input.MIDIPorts()
	if len(ports) == 0 {
		fmt.Println("polyclock: no MIDI input ports found")
		return nil
	}
	fmt.Println(strings.Join(ports, "\n"))
	return nil
}
