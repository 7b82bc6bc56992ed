// ABOUTME: Entry point for the chipstream speaker
// ABOUTME: Parses CLI flags and runs tone, file, or serve mode
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chipstream-audio/chipstream-go/internal/discovery"
	"github.com/chipstream-audio/chipstream-go/internal/ui"
	"github.com/chipstream-audio/chipstream-go/internal/version"
	"github.com/chipstream-audio/chipstream-go/pkg/audio"
	"github.com/chipstream-audio/chipstream-go/pkg/audio/decode"
	"github.com/chipstream-audio/chipstream-go/pkg/audio/device"
	"github.com/chipstream-audio/chipstream-go/pkg/render"
	"github.com/chipstream-audio/chipstream-go/pkg/stream"
)

var (
	backend     = flag.String("backend", "oto", "Audio backend: oto, malgo, portaudio, fake")
	port        = flag.Int("port", 8927, "Websocket port in serve mode")
	name        = flag.String("name", "", "Speaker name (default: hostname-chipstream)")
	numBuffers  = flag.Int("buffers", render.DefaultNumBuffers, "Device buffer ring size")
	audioFile   = flag.String("file", "", "Play a local file (wav, mp3, flac) and exit")
	serve       = flag.Bool("serve", false, "Accept frames from network senders")
	noMDNS      = flag.Bool("no-mdns", false, "Disable mDNS advertisement in serve mode")
	toneFreq    = flag.Float64("tone-freq", 440, "Test tone frequency in Hz")
	logFile     = flag.String("log-file", "chipstream.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if useTUI {
		// TUI owns the terminal; logs go to the file only.
		logrus.SetOutput(f)
	} else {
		logrus.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "main")

	speakerName := *name
	if speakerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		speakerName = fmt.Sprintf("%s-chipstream", hostname)
	}

	log.Infof("%s %s starting as %q", version.Product, version.Version, speakerName)

	dev, err := newDevice(*backend)
	if err != nil {
		log.Fatal(err)
	}

	renderer, err := render.New(render.Config{Device: dev, NumBuffers: *numBuffers})
	if err != nil {
		log.Fatalf("failed to create renderer: %v", err)
	}
	if err := renderer.Start(); err != nil {
		log.Fatalf("failed to start renderer: %v", err)
	}
	defer renderer.Stop()

	mode := "tone"
	switch {
	case *audioFile != "":
		mode = "file"
	case *serve:
		mode = "serve"
	}

	var tui *ui.TUI
	if useTUI {
		tui = ui.New(speakerName, mode, renderer)
	}

	// producerDone is closed by finite producers (file mode) so the program
	// can exit once the pipeline drains.
	producerDone := make(chan struct{})
	stopProducer := make(chan struct{})

	switch mode {
	case "file":
		go func() {
			defer close(producerDone)
			if err := playFile(renderer, *audioFile, stopProducer, tui); err != nil {
				log.Errorf("file playback failed: %v", err)
			}
		}()
	case "serve":
		srv, err := stream.NewServer(stream.ServerConfig{Port: *port, Name: speakerName}, renderer)
		if err != nil {
			log.Fatalf("failed to create server: %v", err)
		}
		if err := srv.Start(); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
		defer srv.Stop()

		if !*noMDNS {
			mdns := discovery.NewManager(discovery.Config{Name: speakerName, Port: srv.Port()})
			if err := mdns.Advertise(); err != nil {
				log.Warnf("mDNS advertisement failed: %v", err)
			}
			defer mdns.Stop()
		}

		if tui != nil {
			go pollSenders(srv, tui, stopProducer)
		}
	default:
		format := audio.Format{SampleRate: 44100, Channels: audio.MonoChannels}
		tone := audio.NewToneSource(*toneFreq, format)
		if tui != nil {
			tui.SetFormat(format)
		}
		go playTone(renderer, tone, stopProducer)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if tui != nil {
		tuiDone := make(chan struct{})
		go func() {
			defer close(tuiDone)
			if err := tui.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
		}()
		select {
		case <-tuiDone:
		case <-sigChan:
			tui.Quit()
			<-tuiDone
		case <-producerDone:
			if mode == "file" {
				waitForDrain(renderer)
				tui.Quit()
				<-tuiDone
			}
		}
	} else {
		select {
		case <-sigChan:
			log.Info("shutdown signal received")
		case <-producerDone:
			if mode == "file" {
				waitForDrain(renderer)
			}
		}
	}

	close(stopProducer)
	log.Info("speaker stopped")
}

// newDevice picks an output backend by name.
func newDevice(backend string) (device.Device, error) {
	switch strings.ToLower(backend) {
	case "oto":
		return device.NewOto(), nil
	case "malgo":
		return device.NewMalgo(), nil
	case "portaudio":
		return device.NewPortAudio(), nil
	case "fake":
		return device.NewFake(true), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want oto, malgo, portaudio, or fake)", backend)
	}
}

// playTone pushes tone frames, pacing against the pipeline depth so the
// queue stays shallow.
func playTone(r *render.Renderer, tone *audio.ToneSource, stop chan struct{}) {
	const frameSize = render.DefaultFrameSize
	maxDepth := tone.Format().SampleRate / 2

	for {
		select {
		case <-stop:
			return
		default:
		}

		if r.BufferSize() > maxDepth {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		frame := tone.NextFrame(frameSize)
		if err := r.PushFrame(frame.Samples, frame.SampleCount, frame.Format.SampleRate, frame.Format.Channels); err != nil {
			return
		}
	}
}

// playFile decodes a local file into the renderer, pacing on pipeline depth.
func playFile(r *render.Renderer, path string, stop chan struct{}, tui *ui.TUI) error {
	dec, err := decode.Open(path)
	if err != nil {
		return err
	}
	defer dec.Close()

	format := dec.Format()
	if tui != nil {
		tui.SetFormat(format)
	}
	logrus.WithField("component", "main").Infof("playing %s (%s)", path, format)

	maxDepth := format.SampleRate / 2
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if r.BufferSize() > maxDepth {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		frame, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := r.PushFrame(frame.Samples, frame.SampleCount, frame.Format.SampleRate, frame.Format.Channels); err != nil {
			return err
		}
	}
}

// pollSenders mirrors the server's sender count into the TUI.
func pollSenders(srv *stream.Server, tui *ui.TUI, stop chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tui.SetSenders(srv.Senders())
		}
	}
}

// waitForDrain lets queued audio finish playing before shutdown, bounded so
// a wedged device cannot hang exit.
func waitForDrain(r *render.Renderer) {
	deadline := time.Now().Add(10 * time.Second)
	for r.BufferSize() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}
