// Package audio plays synthesized announcement files.
package audio

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// Player defines the interface for announcement playback.
type Player interface {
	// Play starts playback of an audio file. onComplete fires when the
	// file finishes on its own, not when Stop interrupts it.
	Play(filepath string, onComplete func()) error
	// Stop aborts current playback.
	Stop()
	// IsBusy reports whether something is loaded and playing.
	IsBusy() bool
	// SetVolume sets playback volume (0.0 to 1.0).
	SetVolume(vol float64)
	// Volume returns current volume level.
	Volume() float64
	// Shutdown stops playback and removes the current audio artifact.
	Shutdown()
}

// Manager implements Player using gopxl/beep.
type Manager struct {
	mu                 sync.RWMutex
	ctrl               *beep.Ctrl
	volume             float64
	streamer           *effects.Volume
	trackStreamer      beep.StreamSeekCloser
	lastFile           string
	speakerInitialized bool
	currentSampleRate  beep.SampleRate
}

// New creates a Manager at full volume.
func New() *Manager {
	return &Manager{volume: 1.0}
}

// Play decodes and plays the file through the shared speaker.
func (m *Manager) Play(filepath string, onComplete func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	streamer, format, err := decodeStreamer(filepath)
	if err != nil {
		return err
	}

	if err := m.ensureSpeakerInitialized(streamer); err != nil {
		return err
	}

	resampled := beep.Resample(3, format.SampleRate, m.currentSampleRate, streamer)

	volStreamer := &effects.Volume{
		Streamer: resampled,
		Base:     2,
		Volume:   volumeToPower(m.volume),
		Silent:   m.volume <= 0.01,
	}
	m.streamer = volStreamer
	m.trackStreamer = streamer

	m.ctrl = &beep.Ctrl{Streamer: volStreamer}

	speaker.Play(beep.Seq(m.ctrl, beep.Callback(func() {
		// Cleanup off the speaker thread
		go func() {
			m.mu.Lock()
			m.ctrl = nil
			m.mu.Unlock()
			streamer.Close()

			if onComplete != nil {
				onComplete()
			}
		}()
	})))

	// The previous artifact is safe to delete once the new one is loaded
	if m.lastFile != "" && m.lastFile != filepath {
		if err := os.Remove(m.lastFile); err == nil {
			slog.Debug("Audio: cleaned up previous artifact", "path", m.lastFile)
		} else if !os.IsNotExist(err) {
			slog.Warn("Audio: failed to cleanup previous artifact", "path", m.lastFile, "error", err)
		}
	}
	m.lastFile = filepath

	slog.Debug("Playing audio", "path", filepath)
	return nil
}

// Stop aborts current playback.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.trackStreamer != nil {
		m.trackStreamer.Close()
		m.trackStreamer = nil
	}
	if m.ctrl != nil {
		speaker.Clear()
		m.ctrl = nil
	}
}

func (m *Manager) ensureSpeakerInitialized(streamer beep.StreamSeekCloser) error {
	const targetSampleRate = 48000
	if !m.speakerInitialized {
		err := speaker.Init(beep.SampleRate(targetSampleRate), beep.SampleRate(targetSampleRate).N(time.Second/10))
		if err != nil {
			streamer.Close()
			slog.Error("Failed to initialize speaker", "error", err)
			return err
		}
		m.speakerInitialized = true
		m.currentSampleRate = beep.SampleRate(targetSampleRate)
	}
	return nil
}

// IsBusy reports whether audio is loaded.
func (m *Manager) IsBusy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctrl != nil
}

// SetVolume sets playback volume (0.0 to 1.0).
func (m *Manager) SetVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vol < 0 {
		vol = 0
	} else if vol > 1 {
		vol = 1
	}
	m.volume = vol

	if m.streamer != nil {
		speaker.Lock()
		m.streamer.Volume = volumeToPower(vol)
		m.streamer.Silent = vol <= 0.01
		speaker.Unlock()
	}
}

// Volume returns current volume level.
func (m *Manager) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Shutdown stops playback and deletes any residual audio artifact.
func (m *Manager) Shutdown() {
	m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastFile != "" {
		if err := os.Remove(m.lastFile); err != nil && !os.IsNotExist(err) {
			slog.Warn("Audio: failed to cleanup artifact on shutdown", "path", m.lastFile, "error", err)
		}
		m.lastFile = ""
	}
}

func decodeStreamer(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Failed to open audio file", "path", path, "error", err)
		return nil, beep.Format{}, err
	}

	// Try MP3 first
	streamer, format, err := mp3.Decode(f)
	if err == nil {
		return streamer, format, nil
	}

	// Reopen for the WAV attempt, a failed MP3 decode leaves the offset unknown
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	streamer, format, err = wav.Decode(f)
	if err != nil {
		f.Close()
		slog.Error("Failed to decode audio file", "path", path, "error", err)
		return nil, beep.Format{}, err
	}
	return streamer, format, nil
}
