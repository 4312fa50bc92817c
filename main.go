package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"bandmate/analysis"
	"bandmate/audio"
	"bandmate/config"
	"bandmate/debug"
	"bandmate/dsp"
	"bandmate/midi"
	"bandmate/music"
	"bandmate/sequencer"
	"bandmate/theme"
	"bandmate/tui"
)

// options that are not preferences
type runFlags struct {
	configPath string
	savePath   string
	palette    string
	list       bool
	plain      bool
}

func newFlagSet(cfg *config.Config, rf *runFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("bandmate", flag.ContinueOnError)
	fs.StringVar(&rf.configPath, "config", "", "preferences file (default ~/.config/bandmate/config.yaml)")
	fs.StringVar(&rf.savePath, "save-config", "", "write the effective preferences to this file and continue")
	fs.StringVar(&rf.palette, "palette", "", "GIMP .gpl palette for the monitor")
	fs.BoolVar(&rf.list, "list", false, "list audio inputs and MIDI outputs, then exit")
	fs.BoolVar(&rf.plain, "plain", false, "print a one-line status instead of the monitor")

	fs.IntVar(&cfg.Audio.SampleRate, "sr", cfg.Audio.SampleRate, "analysis sample rate")
	fs.IntVar(&cfg.Audio.BlockSize, "block", cfg.Audio.BlockSize, "capture block size in frames")
	fs.Float64Var(&cfg.Audio.RingSeconds, "ring", cfg.Audio.RingSeconds, "seconds of audio analysed")
	fs.StringVar(&cfg.Audio.Device, "device", cfg.Audio.Device, "input device index or name substring")
	fs.StringVar(&cfg.Audio.File, "file", cfg.Audio.File, "play a WAV file instead of listening")
	fs.BoolVar(&cfg.Audio.Loop, "loop", cfg.Audio.Loop, "loop -file")
	fs.DurationVar(&cfg.Analysis.Interval, "interval", cfg.Analysis.Interval, "time between analyses")
	fs.StringVar(&cfg.MIDI.Port, "port", cfg.MIDI.Port, "MIDI output name substring")
	fs.StringVar(&cfg.MIDI.Kit, "kit", cfg.MIDI.Kit, "drum kit: gm, rd8, tr8s, er1")
	fs.StringVar(&cfg.MIDI.Record, "record", cfg.MIDI.Record, "also write the performance to this .mid file")
	fs.Float64Var(&cfg.Groove.StartTempo, "bpm", cfg.Groove.StartTempo, "starting tempo")
	fs.Float64Var(&cfg.Groove.FixedTempo, "fixed-bpm", cfg.Groove.FixedTempo, "lock the tempo (0 follows the input)")
	fs.BoolVar(&cfg.UI.Debug, "debug", cfg.UI.Debug, "write ~/.config/bandmate/debug.log")
	return fs
}

// parseConfig resolves defaults < preferences file < flags
func parseConfig(args []string) (*config.Config, runFlags, error) {
	var rf runFlags
	if err := newFlagSet(config.DefaultConfig(), &rf).Parse(args); err != nil {
		return nil, rf, err
	}

	var (
		cfg *config.Config
		err error
	)
	if rf.configPath != "" {
		cfg, err = config.LoadFrom(rf.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, rf, fmt.Errorf("config: %w", err)
	}

	if err := newFlagSet(cfg, &rf).Parse(args); err != nil {
		return nil, rf, err
	}
	return cfg, rf, cfg.Validate()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "bandmate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, rf, err := parseConfig(args)
	if err != nil {
		return err
	}

	if cfg.UI.Debug {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	if rf.list {
		return listDevices()
	}
	if rf.savePath != "" {
		if err := cfg.Save(rf.savePath); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Preferences written to %s\n", rf.savePath)
	}

	th := theme.New(theme.DefaultPalette())
	if rf.palette != "" {
		p, err := theme.LoadGPL(rf.palette)
		if err != nil {
			return fmt.Errorf("palette: %w", err)
		}
		th = theme.New(p)
	}

	defer midi.CloseDriver()
	var sink midi.Sink
	sink, err = midi.OpenOutput(cfg.MIDI.Port, midi.DefaultScanTimeout)
	if err != nil {
		return err
	}
	var rec *midi.Recorder
	if cfg.MIDI.Record != "" {
		rec = midi.NewRecorder(sink, cfg.MIDI.Record)
		sink = rec
	}
	defer func() {
		if err := sink.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "closing %s: %v\n", sink.Name(), err)
			return
		}
		if rec != nil {
			fmt.Printf("Recorded %d events to %s\n", rec.Len(), cfg.MIDI.Record)
		}
	}()

	ring := audio.NewRingFor(cfg.Audio.RingSeconds, cfg.Audio.SampleRate)
	state := music.NewState(cfg.Groove.StartTempo)

	var (
		source audio.Source
		input  string
	)
	if cfg.Audio.File != "" {
		source = audio.NewFileSource(ring, cfg.Audio.File, cfg.Audio.SampleRate, cfg.Audio.BlockSize, cfg.Audio.Loop)
		input = cfg.Audio.File
	} else {
		source = audio.NewCapture(ring, cfg.Audio.Device, cfg.Audio.SampleRate, cfg.Audio.BlockSize)
		input = "input " + cfg.Audio.Device
		if cfg.Audio.Device == "" {
			input = "default input"
		}
	}

	engine := analysis.New(ring, state, dsp.Spectral{}, analysis.Options{
		SampleRate: cfg.Audio.SampleRate,
		Interval:   cfg.Analysis.Interval,
		FixedTempo: cfg.Groove.FixedTempo,
	})
	sched := sequencer.NewScheduler(state, sink, cfg.SchedulerOptions())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errs := make(chan error, 3)
	var wg sync.WaitGroup
	loop := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}
	loop("capture", func(ctx context.Context) error {
		err := source.Run(ctx)
		cancel() // a finished file ends the session
		return err
	})
	loop("analysis", engine.Run)
	loop("scheduler", sched.Run)

	debug.Log("main", "running: input=%s output=%s", input, sink.Name())
	fmt.Printf("bandmate: %s → %s\n", input, sink.Name())

	if cfg.UI.Monitor && !rf.plain {
		m := tui.NewModel(sched.Ticks(), cfg.Voices(), th, sink.Name(), input, cancel).
			WithCapture(ring.Written, cfg.Audio.SampleRate)
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			cancel()
			wg.Wait()
			return fmt.Errorf("monitor: %w", err)
		}
	} else {
		printStatus(ctx, state)
	}

	cancel()
	wg.Wait()
	close(errs)
	return <-errs
}

// printStatus rewrites one status line every half second until ctx ends
func printStatus(ctx context.Context, state *music.State) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-ticker.C:
			fmt.Printf("\r%s", tui.FormatStatus(state.Load()))
		}
	}
}

func listDevices() error {
	fmt.Println("=== Audio Inputs ===")
	devs, err := audio.ListDevices()
	if err != nil {
		fmt.Printf("  (unavailable: %v)\n", err)
	}
	for _, d := range devs {
		mark := " "
		if d.IsDefault {
			mark = "*"
		}
		fmt.Printf(" %s%2d: %s (%d ch, %.0f Hz)\n", mark, d.Index, d.Name, d.Channels, d.SampleRate)
	}

	fmt.Println("\n=== MIDI Output Ports ===")
	fmt.Printf("(waiting up to %v...)\n", midi.DefaultScanTimeout)
	names, err := midi.OutputNames(midi.DefaultScanTimeout)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Printf("  none, a virtual port %q will be created\n", midi.VirtualName)
	}
	for i, n := range names {
		fmt.Printf("  %d: %s\n", i, n)
	}
	return nil
}
