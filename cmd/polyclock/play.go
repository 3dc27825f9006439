package main

import (
	"context"
	"fmt"
	"log"
	"math"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli"

	polyclock "github.com/cbegin/polyclock-go"
	"github.com/cbegin/polyclock-go/internal/tui"
)

var (
	playTempo int
	playMIDI  bool
	midiPort  string

	playFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "tempo, t",
			Usage:       "starting tempo in bpm (default: last tempo from config)",
			Destination: &playTempo,
		},
		cli.BoolFlag{
			Name:        "midi, m",
			Usage:       "record from MIDI note-ons as well as the keyboard",
			Destination: &playMIDI,
		},
		cli.StringFlag{
			Name:        "midi-port",
			Usage:       "MIDI input port name, substring match (default: first port)",
			Destination: &midiPort,
		},
	}
)

func play(ctx *cli.Context) error {
	cfg, store, err := setup()
	if err != nil {
		return err
	}
	if playTempo > 0 {
		cfg.UI.LastTempo = playTempo
	}

	engine, err := polyclock.NewEngine(polyclock.WithConfig(cfg), polyclock.WithSamples(store))
	if err != nil {
		return err
	}
	if err := engine.Start(context.Background()); err != nil {
		return fmt.Errorf("start audio: %w", err)
	}
	defer engine.Stop()

	if playMIDI || cfg.Input.MIDI {
		port := midiPort
		if port == "" {
			port = cfg.Input.MIDIPort
		}
		stop, err := engine.ListenMIDI(port)
		if err != nil {
			log.Printf("polyclock: MIDI disabled: %v", err)
		} else {
			defer stop()
		}
	}

	p := tea.NewProgram(tui.NewModel(engine), tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		return err
	}

	cfg.UI.LastTempo = int(math.Round(engine.Tempo()))
	if err := saveConfig(cfg); err != nil {
		log.Printf("polyclock: save config: %v", err)
	}
	return nil
}
