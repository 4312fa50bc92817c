package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"bandmate/audio"
	"bandmate/midi"
	"bandmate/music"
	"bandmate/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	defer midi.CloseDriver()

	hint := ""
	if len(os.Args) > 2 {
		hint = os.Args[2]
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "ping":
		err = ping(midi.PortOpener{}, hint)
	case "virtual":
		err = ping(midi.VirtualOpener{}, midi.VirtualName)
	case "panic":
		err = panicPort(hint)
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list           - List MIDI outputs and audio inputs")
	fmt.Println("  ping [hint]    - Play two bars of the groove on a port")
	fmt.Println("  virtual        - Play the groove on a virtual port until ctrl+c")
	fmt.Println("  panic [hint]   - Send all notes off on the drum and bass channels")
}

func listPorts() error {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")
	names, err := midi.OutputNames(midi.DefaultScanTimeout)
	if err != nil {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	for i, n := range names {
		fmt.Printf("  %d: %s\n", i, n)
	}

	fmt.Println("\n=== Audio Input Devices ===")
	devs, err := audio.ListDevices()
	if err != nil {
		return err
	}
	for _, d := range devs {
		fmt.Printf("  %d: %s (%d ch)\n", d.Index, d.Name, d.Channels)
	}
	return nil
}

// ping drives the real scheduler with a fixed A minor groove
func ping(o midi.Opener, name string) error {
	sink, err := o.Open(name)
	if err != nil {
		return err
	}
	defer sink.Close()
	fmt.Printf("Playing on %s (ctrl+c to stop)\n", sink.Name())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if _, virtual := o.(midi.VirtualOpener); !virtual {
		ctx, cancel = context.WithTimeout(ctx, 4*time.Second) // two bars at 120
		defer cancel()
	}

	state := music.NewState(120)
	state.Store(music.Snapshot{Tempo: 120, Chord: music.Chord{Root: 9, Quality: music.Minor}, Energy: 0.1})
	sched := sequencer.NewScheduler(state, sink, sequencer.DefaultSchedulerOptions())
	if err := sched.Run(ctx); err != nil {
		return err
	}
	fmt.Printf("Done, %d overruns\n", sched.Overruns())
	return nil
}

func panicPort(hint string) error {
	sink, err := midi.PortOpener{}.Open(hint)
	if err != nil {
		return err
	}
	defer sink.Close()
	v := sequencer.DefaultVoices()
	if err := midi.Panic(sink, v.DrumChannel, v.BassChannel); err != nil {
		return err
	}
	fmt.Printf("Sent all notes off to %s\n", sink.Name())
	return nil
}
