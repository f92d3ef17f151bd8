package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/voicestream-ai/voicestream-go/pkg/audio"
	"github.com/voicestream-ai/voicestream-go/pkg/device"
	"github.com/voicestream-ai/voicestream-go/pkg/voicestream"
)

func main() {
	configPath := flag.String("config", "agent.yaml", "path to the agent config file")
	recordDir := flag.String("record", "", "directory to dump received audio as WAV on exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	agentCfg, err := loadAgentConfig(*configPath)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	level := zerolog.InfoLevel
	if agentCfg.Debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	logger := &zeroLogger{log: zl}

	cfg := agentCfg.toSDKConfig()

	sess, err := voicestream.NewWithLogger(cfg, device.NewCapture(), device.NewPlaybackFactory(), logger)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer sess.Cleanup()

	fmt.Printf("Voice agent %s\n", sess.ID())
	fmt.Printf("Server: %s | Tenant: %s | Mic: %dHz | Speaker: %dHz\n",
		cfg.ServerURL, cfg.TenantID, cfg.Audio.InputSampleRate, cfg.Audio.OutputSampleRate)
	fmt.Println("Press Ctrl+C to exit")

	var rmsMu sync.Mutex
	lastRMS := 0.0

	var recordMu sync.Mutex
	var received []byte

	sess.On(voicestream.EventConnected, func(voicestream.Event) {
		fmt.Printf("\r\033[K[CONNECTED] Starting audio streaming...\n")
		sess.StartAudioStreaming()
	})
	sess.On(voicestream.EventDisconnected, func(ev voicestream.Event) {
		data := ev.Data.(voicestream.DisconnectedData)
		fmt.Printf("\r\033[K[DISCONNECTED] %s\n", data.Reason)
	})
	sess.On(voicestream.EventConnectionStateChanged, func(ev voicestream.Event) {
		fmt.Printf("\r\033[K[STATE] %s\n", ev.Data.(voicestream.ConnectionState))
	})
	sess.On(voicestream.EventTranscript, func(ev voicestream.Event) {
		data := ev.Data.(voicestream.TranscriptData)
		marker := "…"
		if data.IsFinal {
			marker = "✓"
		}
		fmt.Printf("\r\033[K[YOU %s] %s\n", marker, data.Text)
	})
	sess.On(voicestream.EventAssistantMessage, func(ev voicestream.Event) {
		data := ev.Data.(voicestream.AssistantMessageData)
		fmt.Printf("\r\033[K[ASSISTANT] %s\n", data.Text)
	})
	sess.On(voicestream.EventFillerStarted, func(voicestream.Event) {
		fmt.Printf("\r\033[K[FILLER] Assistant is thinking out loud...\n")
	})
	sess.On(voicestream.EventReady, func(voicestream.Event) {
		fmt.Printf("\r\033[K[READY] Server is listening.\n")
	})
	sess.On(voicestream.EventInterrupt, func(voicestream.Event) {
		fmt.Printf("\r\033[K[INTERRUPTED] Playback cleared.\n")
	})
	sess.On(voicestream.EventDiagnostic, func(ev voicestream.Event) {
		data := ev.Data.(voicestream.DiagnosticData)
		fmt.Printf("\r\033[K[DIAG %s] %s\n", data.Code, data.Message)
	})
	sess.On(voicestream.EventError, func(ev voicestream.Event) {
		fmt.Printf("\r\033[K[ERROR] %v\n", ev.Data)
	})
	sess.On(voicestream.EventAudioSent, func(ev voicestream.Event) {
		pcm := ev.Data.([]byte)
		rmsMu.Lock()
		lastRMS = pcmRMS(pcm)
		rmsMu.Unlock()
	})
	sess.On(voicestream.EventAudioReceived, func(ev voicestream.Event) {
		if *recordDir == "" {
			return
		}
		pcm := ev.Data.([]byte)
		recordMu.Lock()
		received = append(received, pcm...)
		recordMu.Unlock()
	})

	// Mic level meter, refreshed on its own cadence.
	go func() {
		for {
			rmsMu.Lock()
			level := lastRMS
			rmsMu.Unlock()

			dots := int(level * 500)
			if dots > 40 {
				dots = 40
			}
			meter := ""
			for i := 0; i < dots; i++ {
				meter += "|"
			}
			fmt.Printf("\r[MIC: %-40s] RMS: %.5f", meter, level)
			time.Sleep(100 * time.Millisecond)
		}
	}()

	sess.Connect()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Printf("\nShutting down...\n")

	sess.Disconnect()

	if *recordDir != "" {
		recordMu.Lock()
		pcm := received
		recordMu.Unlock()
		if len(pcm) > 0 {
			path := filepath.Join(*recordDir, fmt.Sprintf("session_%s.wav", sess.ID()))
			wav := audio.NewWavBuffer(pcm, cfg.Audio.OutputSampleRate)
			if err := os.WriteFile(path, wav, 0644); err != nil {
				log.Printf("failed to write recording: %v", err)
			} else {
				fmt.Printf("Wrote %s (%v of audio)\n", path, audio.PCMDuration(pcm, cfg.Audio.OutputSampleRate))
			}
		}
	}
}

// pcmRMS computes the root mean square level of a PCM16LE chunk.
func pcmRMS(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(pcm[i]) | (int16(pcm[i+1]) << 8)
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(pcm)/2))
}
