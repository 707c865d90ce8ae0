package audio

import (
	"os"
	"sync"
)

// NullPlayer completes playback instantly without touching an audio
// device. Used with the mock TTS engine and in tests.
type NullPlayer struct {
	mu   sync.Mutex
	busy bool
	vol  float64
	last string
}

// NewNullPlayer creates a NullPlayer.
func NewNullPlayer() *NullPlayer {
	return &NullPlayer{vol: 1.0}
}

func (p *NullPlayer) Play(filepath string, onComplete func()) error {
	p.mu.Lock()
	p.busy = true
	if p.last != "" && p.last != filepath {
		_ = os.Remove(p.last)
	}
	p.last = filepath
	p.mu.Unlock()

	go func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
	}()
	return nil
}

func (p *NullPlayer) Stop() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

func (p *NullPlayer) IsBusy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

func (p *NullPlayer) SetVolume(vol float64) {
	p.mu.Lock()
	p.vol = vol
	p.mu.Unlock()
}

func (p *NullPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vol
}

func (p *NullPlayer) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != "" {
		_ = os.Remove(p.last)
		p.last = ""
	}
}
