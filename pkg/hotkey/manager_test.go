package hotkey

import "testing"

func TestManagerPublishesPressAndRelease(t *testing.T) {
	m := NewManager(NewSingleKeyTrigger("F9", NewModifierSet()))

	var pressed, released int
	m.Subscribe(func(HotkeyPressedEvent) { pressed++ }, func(HotkeyReleasedEvent) { released++ })

	m.HandleEvent(pressEvt("F9", 0))
	m.HandleEvent(pressEvt("F9", 10)) // suppressed repeat
	m.HandleEvent(releaseEvt("F9", 20))

	if pressed != 1 {
		t.Errorf("expected exactly 1 press event, got %d", pressed)
	}
	if released != 1 {
		t.Errorf("expected exactly 1 release event, got %d", released)
	}
}

func TestManagerMultipleListeners(t *testing.T) {
	m := NewManager(NewSingleKeyTrigger("F9", NewModifierSet()))

	var a, b int
	m.Subscribe(func(HotkeyPressedEvent) { a++ }, nil)
	m.Subscribe(func(HotkeyPressedEvent) { b++ }, nil)

	m.HandleEvent(pressEvt("F9", 0))

	if a != 1 || b != 1 {
		t.Errorf("expected both listeners invoked once, got a=%d b=%d", a, b)
	}
}
