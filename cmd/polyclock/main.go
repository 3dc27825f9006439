package main

import (
	"log"
	"os"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

var version = "dev"

func main() {
	log.SetFlags(0)
	if err := Execute(os.Args); err != nil {
		log.Fatalf("polyclock: %v", err)
	}
}
