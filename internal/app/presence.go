package app

import (
	"sync"
	"time"
)

type graceKey struct {
	roomCode string
	userID   string
}

type deadlineKey struct {
	roomCode string
	question int
}

// Presence tracks the cancellable timers a room accumulates: one
// reconnection-grace timer per disconnected player and one deadline
// timer per live question. Scheduling a key replaces any timer it
// supersedes; cancellation is best-effort, so every fire func must
// re-validate the state it is about to act on.
type Presence struct {
	mu        sync.Mutex
	graces    map[graceKey]*time.Timer
	deadlines map[deadlineKey]*time.Timer
}

func NewPresence() *Presence {
	return &Presence{
		graces:    make(map[graceKey]*time.Timer),
		deadlines: make(map[deadlineKey]*time.Timer),
	}
}

// ScheduleGrace arms the removal timer for a disconnected player.
func (p *Presence) ScheduleGrace(roomCode, userID string, d time.Duration, fire func()) {
	key := graceKey{roomCode: roomCode, userID: userID}
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.graces[key]; ok {
		t.Stop()
	}
	p.graces[key] = time.AfterFunc(d, func() {
		p.mu.Lock()
		delete(p.graces, key)
		p.mu.Unlock()
		fire()
	})
}

// CancelGrace disarms a pending removal, typically on reconnect.
func (p *Presence) CancelGrace(roomCode, userID string) {
	key := graceKey{roomCode: roomCode, userID: userID}
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.graces[key]; ok {
		t.Stop()
		delete(p.graces, key)
	}
}

// ScheduleDeadline arms the expiry timer for one question.
func (p *Presence) ScheduleDeadline(roomCode string, question int, d time.Duration, fire func()) {
	key := deadlineKey{roomCode: roomCode, question: question}
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.deadlines[key]; ok {
		t.Stop()
	}
	p.deadlines[key] = time.AfterFunc(d, func() {
		p.mu.Lock()
		delete(p.deadlines, key)
		p.mu.Unlock()
		fire()
	})
}

// CancelDeadline disarms a question timer superseded by an advance.
func (p *Presence) CancelDeadline(roomCode string, question int) {
	key := deadlineKey{roomCode: roomCode, question: question}
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.deadlines[key]; ok {
		t.Stop()
		delete(p.deadlines, key)
	}
}

// CancelRoom drops every timer keyed to a room when it closes.
func (p *Presence) CancelRoom(roomCode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, t := range p.graces {
		if key.roomCode == roomCode {
			t.Stop()
			delete(p.graces, key)
		}
	}
	for key, t := range p.deadlines {
		if key.roomCode == roomCode {
			t.Stop()
			delete(p.deadlines, key)
		}
	}
}
