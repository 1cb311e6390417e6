package hotkey

import (
	"sync"
	"sync/atomic"
	"time"
)

// HotkeyPressedEvent is published on the configured trigger's press edge.
type HotkeyPressedEvent struct {
	At time.Time
}

// HotkeyReleasedEvent is published on the configured trigger's release edge.
type HotkeyReleasedEvent struct {
	At time.Time
}

// PressListener and ReleaseListener are static, construction-time
// subscribers; there is no runtime discovery.
type PressListener func(HotkeyPressedEvent)
type ReleaseListener func(HotkeyReleasedEvent)

// Manager owns a configured Trigger, consumes NormalizedKeyEvents from an
// external key hook, and fans press/release edges out to listeners. The
// listener slice is stored behind an atomic.Value so dispatch never takes
// a lock on the hot path.
type Manager struct {
	trigger Trigger

	pressListeners  atomic.Value // []PressListener
	releaseListeners atomic.Value // []ReleaseListener
	mu              sync.Mutex   // serializes listener registration only
}

// NewManager builds a Manager around the given trigger.
func NewManager(trigger Trigger) *Manager {
	m := &Manager{trigger: trigger}
	m.pressListeners.Store([]PressListener{})
	m.releaseListeners.Store([]ReleaseListener{})
	return m
}

// Subscribe registers listeners. Intended to be called once at
// construction time, before any events are dispatched.
func (m *Manager) Subscribe(onPress PressListener, onRelease ReleaseListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if onPress != nil {
		cur := m.pressListeners.Load().([]PressListener)
		next := make([]PressListener, len(cur)+1)
		copy(next, cur)
		next[len(cur)] = onPress
		m.pressListeners.Store(next)
	}
	if onRelease != nil {
		cur := m.releaseListeners.Load().([]ReleaseListener)
		next := make([]ReleaseListener, len(cur)+1)
		copy(next, cur)
		next[len(cur)] = onRelease
		m.releaseListeners.Store(next)
	}
}

// HandleEvent forwards evt to the configured trigger and publishes the
// corresponding edge event to all listeners if it fires.
func (m *Manager) HandleEvent(evt NormalizedKeyEvent) {
	now := time.UnixMilli(evt.WhenMs)

	switch evt.Kind {
	case Pressed:
		if m.trigger.OnKeyPressed(evt) {
			for _, l := range m.pressListeners.Load().([]PressListener) {
				l(HotkeyPressedEvent{At: now})
			}
		}
	case Released:
		if m.trigger.OnKeyReleased(evt) {
			for _, l := range m.releaseListeners.Load().([]ReleaseListener) {
				l(HotkeyReleasedEvent{At: now})
			}
		}
	}
}
