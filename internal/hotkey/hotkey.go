// Package hotkey provides global hotkey control for headless dictation:
// a record combo in "hold" mode (press to start, release to stop) or
// "toggle" mode (press to start, press again to stop), plus a separate
// combo that switches between the recognition pipelines.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType is the action a hotkey press maps to.
type EventType int

const (
	// EventStart signals that recording should begin.
	EventStart EventType = iota
	// EventStop signals that recording should end.
	EventStop
	// EventSwitch signals a pipeline switch request.
	EventSwitch
)

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Listener manages the global hotkeys and emits events.
type Listener struct {
	recordKeys []string
	switchKeys []string
	mode       string // "hold" or "toggle"
	ch         chan Event
	done       chan struct{}
	once       sync.Once
}

// NewListener creates a Listener. recordKeys and switchKeys are
// lowercase key names (e.g., ["ctrl", "shift", "r"]); switchKeys may be
// empty to disable pipeline switching. mode must be "hold" or "toggle".
func NewListener(recordKeys, switchKeys []string, mode string) *Listener {
	return &Listener{
		recordKeys: recordKeys,
		switchKeys: switchKeys,
		mode:       mode,
		ch:         make(chan Event, 16),
		done:       make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events.
// The channel is closed when Stop is called.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkeys.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	if len(l.switchKeys) > 0 {
		hook.Register(hook.KeyDown, l.switchKeys, func(e hook.Event) {
			l.send(Event{Type: EventSwitch})
		})
	}

	switch l.mode {
	case "toggle":
		l.registerToggle()
	default: // "hold"
		l.registerHold()
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// registerHold implements hold-to-talk mode:
// KeyDown -> EventStart, KeyUp -> EventStop.
func (l *Listener) registerHold() {
	hook.Register(hook.KeyDown, l.recordKeys, func(e hook.Event) {
		l.send(Event{Type: EventStart})
	})
	hook.Register(hook.KeyUp, l.recordKeys, func(e hook.Event) {
		l.send(Event{Type: EventStop})
	})
}

// registerToggle implements toggle mode:
// first press -> EventStart, second press -> EventStop, etc.
func (l *Listener) registerToggle() {
	var mu sync.Mutex
	recording := false

	hook.Register(hook.KeyDown, l.recordKeys, func(e hook.Event) {
		mu.Lock()
		defer mu.Unlock()
		if recording {
			l.send(Event{Type: EventStop})
			recording = false
		} else {
			l.send(Event{Type: EventStart})
			recording = true
		}
	})
}

// send delivers an event without blocking the hook thread.
func (l *Listener) send(ev Event) {
	select {
	case l.ch <- ev:
	default: // don't block if channel is full
	}
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
