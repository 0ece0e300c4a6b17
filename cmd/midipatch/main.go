// Package main is the entry point for the midipatch MIDI router.
//
// The process applies the routing table once at startup and then parks,
// reacting to signals: SIGUSR1 rewires against the current port topology,
// SIGUSR2 sends a panic silence sweep to every discoverable output, and
// SIGINT/SIGTERM stop the process.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/midipatch/midipatch/internal/config"
	"github.com/midipatch/midipatch/internal/domain/station"
	"github.com/midipatch/midipatch/internal/infra/mididrv"
	"github.com/midipatch/midipatch/internal/version"
)

func main() {
	configPath := flag.String("config", "", "routing table file (JSON)")
	list := flag.Bool("list", false, "list discoverable MIDI ports and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		return
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	drv, err := mididrv.NewRTMIDI()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MIDI driver")
	}
	defer drv.Close()

	if *list {
		listPorts(drv)
		return
	}

	if *configPath == "" {
		log.Fatal().Msg("-config is required (or use -list to inspect ports)")
	}

	w, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load routing table")
	}

	log.Info().Msgf("%s starting", version.GetInfo().String())
	log.Info().
		Str("config", *configPath).
		Int("rules", len(w)).
		Msg("Configuration")

	st := station.New(drv)
	if err := st.Wire(w); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply wiring")
	}

	log.Info().Msg("Running; SIGUSR1 rewires, SIGUSR2 panics")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGINT, syscall.SIGTERM)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGUSR1:
			log.Info().Msg("Rewiring against current port topology")
			if err := st.Rewire(); err != nil {
				log.Error().Err(err).Msg("Rewire failed")
			}
		case syscall.SIGUSR2:
			log.Info().Msg("Panic requested")
			if err := st.Panic(); err != nil {
				log.Error().Err(err).Msg("Panic sweep reported errors")
			}
		default:
			// Outputs are left as they are on interrupt; use SIGUSR2
			// before stopping if the rig needs silencing.
			log.Info().Str("signal", sig.String()).Msg("Interrupted, goodbye")
			return
		}
	}
}

func listPorts(drv mididrv.Driver) {
	ins, err := drv.Ins()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list inputs")
	}
	outs, err := drv.Outs()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list outputs")
	}

	fmt.Println("Inputs:")
	for _, p := range ins {
		fmt.Printf("  %d: %s\n", p.Number(), p.Name())
	}
	fmt.Println("Outputs:")
	for _, p := range outs {
		fmt.Printf("  %d: %s\n", p.Number(), p.Name())
	}
}
