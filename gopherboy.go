// This file is part of Gopherboy.
//
// Gopherboy is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopherboy is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopherboy.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/jetsetilly/gopherboy/cartridgeloader"
	"github.com/jetsetilly/gopherboy/digest"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/hardware/family"
	"github.com/jetsetilly/gopherboy/logger"
	"github.com/jetsetilly/gopherboy/speakers"
	"github.com/jetsetilly/gopherboy/statsview"
	"github.com/jetsetilly/gopherboy/version"
	"github.com/jetsetilly/gopherboy/wavwriter"
)

func main() {
	frames := flag.Int("frames", 0, "number of frames to run. zero means run until interrupted")
	forceDMG := flag.Bool("dmg", false, "run as the monochrome hardware family regardless of cartridge")
	bootROMFile := flag.String("bootrom", "", "boot ROM image to run at power on")
	wavFile := flag.String("wav", "", "record audio to WAV file")
	audio := flag.Bool("audio", false, "play audio through the host audio device")
	loadStateFile := flag.String("loadstate", "", "restore a save state before running")
	saveStateFile := flag.String("savestate", "", "write a save state after running")
	fingerprint := flag.Bool("digest", false, "print video/audio digests on exit")
	stats := flag.Bool("stats", false, "launch statsview (if available in this build)")
	echoLog := flag.Bool("log", false, "echo log entries to stderr")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		vers, rev, _ := version.Version()
		fmt.Printf("%s %s (%s)\n", version.ApplicationName, vers, rev)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gopherboy [flags] cartridge")
		flag.PrintDefaults()
		os.Exit(10)
	}

	if *echoLog {
		logger.SetEcho(os.Stderr, true)
	}

	if *stats {
		if statsview.Available() {
			statsview.Launch(os.Stdout)
		} else {
			fmt.Fprintln(os.Stderr, "statsview not available in this build")
		}
	}

	if err := run(flag.Arg(0), options{
		frames:        *frames,
		forceDMG:      *forceDMG,
		bootROMFile:   *bootROMFile,
		wavFile:       *wavFile,
		audio:         *audio,
		loadStateFile: *loadStateFile,
		saveStateFile: *saveStateFile,
		fingerprint:   *fingerprint,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "* %v\n", err)
		os.Exit(10)
	}
}

type options struct {
	frames        int
	forceDMG      bool
	bootROMFile   string
	wavFile       string
	audio         bool
	loadStateFile string
	saveStateFile string
	fingerprint   bool
}

func run(cartFile string, opts options) error {
	ld, err := cartridgeloader.NewLoader(cartFile)
	if err != nil {
		return err
	}

	var conOpts []hardware.Option
	if opts.forceDMG {
		conOpts = append(conOpts, hardware.WithFamily(family.DMG))
	}
	if opts.bootROMFile != "" {
		data, err := os.ReadFile(opts.bootROMFile)
		if err != nil {
			return err
		}
		conOpts = append(conOpts, hardware.WithBootROM(data))
	}

	con, err := hardware.NewConsole(ld, conOpts...)
	if err != nil {
		return err
	}

	if opts.loadStateFile != "" {
		f, err := os.Open(opts.loadStateFile)
		if err != nil {
			return err
		}
		err = con.LoadState(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	var wav *wavwriter.WavWriter
	if opts.wavFile != "" {
		wav, err = wavwriter.New(opts.wavFile)
		if err != nil {
			return err
		}
	}

	var spk *speakers.Speakers
	if opts.audio {
		spk, err = speakers.New()
		if err != nil {
			return err
		}
		defer spk.Close()
	}

	vdig := digest.NewVideo()
	adig := digest.NewAudio()

	// ctrl-c ends the run cleanly so battery saves and recordings land
	intChan := make(chan os.Signal, 1)
	signal.Notify(intChan, os.Interrupt)

	done := false
	for !done {
		con.RunForFrame()

		samples := con.AudioSamples()
		if wav != nil {
			wav.SetAudio(samples)
		}
		if spk != nil {
			spk.Queue(samples)
		}
		if opts.fingerprint {
			vdig.NewFrame(con.Bus.PPU.RawFrame())
			adig.SetAudio(samples)
		}

		select {
		case <-intChan:
			done = true
		default:
		}

		if opts.frames > 0 && con.Bus.PPU.FrameNum() >= opts.frames {
			done = true
		}
	}

	if opts.fingerprint {
		adig.EndMixing()
		fmt.Printf("video digest: %s\n", vdig.Hash())
		fmt.Printf("audio digest: %s\n", adig.Hash())
	}

	if wav != nil {
		if err := wav.EndMixing(); err != nil {
			return err
		}
	}

	if opts.saveStateFile != "" {
		f, err := os.Create(opts.saveStateFile)
		if err != nil {
			return err
		}
		err = con.SaveState(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	return con.FlushBattery()
}
