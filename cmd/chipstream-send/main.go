// ABOUTME: Entry point for the chipstream sender
// ABOUTME: Decodes a local audio file and streams it to a network speaker
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chipstream-audio/chipstream-go/internal/discovery"
	"github.com/chipstream-audio/chipstream-go/pkg/audio/decode"
	"github.com/chipstream-audio/chipstream-go/pkg/stream"
)

var (
	serverAddr = flag.String("server", "", "Speaker address host:port (default: discover via mDNS)")
	name       = flag.String("name", "chipstream-send", "Sender name")
	targetMs   = flag.Int("target-ms", 500, "Speaker-side buffer target in milliseconds")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "send")

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: chipstream-send [flags] <file.wav|mp3|flac>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	addr := *serverAddr
	if addr == "" {
		log.Info("discovering speakers via mDNS")
		mdns := discovery.NewManager(discovery.Config{Name: *name})
		defer mdns.Stop()

		speaker, err := mdns.FindFirst(10 * time.Second)
		if err != nil {
			log.Fatalf("discovery failed: %v", err)
		}
		addr = speaker.Addr()
		log.Infof("found speaker %s at %s", speaker.Name, addr)
	}

	dec, err := decode.Open(path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", path, err)
	}
	defer dec.Close()

	client := stream.NewClient(stream.ClientConfig{ServerAddr: addr, Name: *name})
	if err := client.Connect(); err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()
	log.Infof("streaming %s (%s) to %q", path, dec.Format(), client.Speaker().Name)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Pace on the speaker's reported depth so its queue holds roughly
	// target-ms of audio.
	targetSamples := dec.Format().SampleRate * *targetMs / 1000
	sent := 0
	for {
		select {
		case <-sigChan:
			log.Info("interrupted")
			return
		default:
		}

		if client.Status().BufferedSamples > targetSamples {
			time.Sleep(20 * time.Millisecond)
			continue
		}

		frame, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("decode failed: %v", err)
		}
		if err := client.SendFrame(frame); err != nil {
			log.Fatalf("send failed: %v", err)
		}
		sent += frame.SampleCount
	}

	log.Infof("done, sent %d samples (%.1fs)", sent, float64(sent)/float64(dec.Format().SampleRate))
}
