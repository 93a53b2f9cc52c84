package practice

import "sync"

// Playback tracks the one audio clip a session is playing. Starting a new
// clip cuts over from the old one.
type Playback struct {
	mu      sync.Mutex
	current string
}

// Start makes id the playing clip. It reports false when id is already
// playing, so a second click does not restart it.
func (p *Playback) Start(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id == "" || p.current == id {
		return false
	}
	p.current = id
	return true
}

// Finish clears the slot if id is still the playing clip. Ending a clip that
// was already cut over is a no-op.
func (p *Playback) Finish(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == id {
		p.current = ""
	}
}

// Current returns the playing clip ID, or "".
func (p *Playback) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
