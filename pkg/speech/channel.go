// Package speech serializes announcement rendering onto a single audio
// channel.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"geoguidego/pkg/audio"
	"geoguidego/pkg/model"
	"geoguidego/pkg/tts"
)

// Channel abstracts the single speech-synthesis output device.
type Channel interface {
	// IsReady reports whether the channel can render. Calling it may
	// trigger (re-)initialization; re-init is single-flight.
	IsReady() bool
	// Render synthesizes and plays the item. The returned channel
	// delivers exactly one value: nil on completed playback, an error
	// otherwise.
	Render(ctx context.Context, item *model.SpeechItem) <-chan error
	// Stop aborts in-flight rendering immediately.
	Stop()
}

// SynthChannel renders items by synthesizing with a tts.Provider into a
// temp file and playing it through an audio.Player.
type SynthChannel struct {
	provider tts.Provider
	player   audio.Player
	voice    string
	outDir   string

	initMu sync.Mutex
	ready  bool
}

// NewSynthChannel creates a channel writing synthesis artifacts to outDir.
func NewSynthChannel(provider tts.Provider, player audio.Player, voice, outDir string) *SynthChannel {
	return &SynthChannel{
		provider: provider,
		player:   player,
		voice:    voice,
		outDir:   outDir,
	}
}

// IsReady initializes the output directory on first use. The mutex makes
// concurrent re-initialization attempts collapse into one.
func (c *SynthChannel) IsReady() bool {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.ready {
		return true
	}
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		slog.Warn("Speech channel init failed", "dir", c.outDir, "error", err)
		return false
	}
	c.ready = true
	return true
}

// Render synthesizes the item and starts playback. Completion arrives on
// the returned channel.
func (c *SynthChannel) Render(ctx context.Context, item *model.SpeechItem) <-chan error {
	done := make(chan error, 1)

	go func() {
		outPath := filepath.Join(c.outDir, uuid.New().String())

		format, err := c.provider.Synthesize(ctx, tts.Request{
			Text:  item.Text,
			Voice: c.voice,
			Speed: item.Speed,
			Pitch: item.Pitch,
		}, outPath)
		if err != nil {
			done <- fmt.Errorf("synthesize: %w", err)
			return
		}
		audioPath := outPath + "." + format

		if fi, err := os.Stat(audioPath); err != nil || fi.Size() < tts.MinAudioSize {
			_ = os.Remove(audioPath)
			done <- fmt.Errorf("synthesis produced no usable audio for %q", item.POIKey)
			return
		}

		if err := c.player.Play(audioPath, func() {
			done <- nil
		}); err != nil {
			done <- fmt.Errorf("play: %w", err)
		}
	}()

	return done
}

// Stop aborts playback.
func (c *SynthChannel) Stop() {
	c.player.Stop()
}
