package hotkey

// Trigger decodes a stream of key events into press/release edges for one
// configured shape. Triggers are stateful but never thread-shared: the
// manager calls a single trigger from one goroutine only.
type Trigger interface {
	OnKeyPressed(evt NormalizedKeyEvent) bool
	OnKeyReleased(evt NormalizedKeyEvent) bool
	Name() string
}

// SingleKeyTrigger fires on a target key combined with required
// modifiers, suppressing repeats while the key is held.
type SingleKeyTrigger struct {
	TargetKey         string
	RequiredModifiers ModifierSet
	held              bool
}

func NewSingleKeyTrigger(targetKey string, requiredModifiers ModifierSet) *SingleKeyTrigger {
	return &SingleKeyTrigger{TargetKey: targetKey, RequiredModifiers: requiredModifiers}
}

func (t *SingleKeyTrigger) Name() string { return "SINGLE_KEY" }

func (t *SingleKeyTrigger) OnKeyPressed(evt NormalizedKeyEvent) bool {
	if t.held || evt.Key != t.TargetKey {
		return false
	}
	if !t.RequiredModifiers.SubsetOf(evt.Modifiers) {
		return false
	}
	t.held = true
	return true
}

func (t *SingleKeyTrigger) OnKeyReleased(evt NormalizedKeyEvent) bool {
	if !t.held || evt.Key != t.TargetKey {
		return false
	}
	t.held = false
	return true
}

// DoubleTapTrigger fires when two presses of the target key land within
// thresholdMs of each other, and stays "active" until the next key release
// (of any key).
type DoubleTapTrigger struct {
	TargetKey   string
	ThresholdMs int64

	lastPressMs int64
	hasLast     bool
	active      bool
}

func NewDoubleTapTrigger(targetKey string, thresholdMs int64) *DoubleTapTrigger {
	return &DoubleTapTrigger{TargetKey: targetKey, ThresholdMs: thresholdMs}
}

func (t *DoubleTapTrigger) Name() string { return "DOUBLE_TAP" }

func (t *DoubleTapTrigger) OnKeyPressed(evt NormalizedKeyEvent) bool {
	if evt.Key != t.TargetKey {
		return false
	}
	if t.hasLast && evt.WhenMs-t.lastPressMs <= t.ThresholdMs {
		t.active = true
		t.hasLast = false
		return true
	}
	t.lastPressMs = evt.WhenMs
	t.hasLast = true
	return false
}

func (t *DoubleTapTrigger) OnKeyReleased(evt NormalizedKeyEvent) bool {
	if !t.active {
		return false
	}
	t.active = false
	return true
}

// ModifierComboTrigger fires when all configured modifiers plus the
// primary key are held together; only the primary key's release ends it,
// modifier release is ignored (see spec's open-question decision).
type ModifierComboTrigger struct {
	Modifiers  ModifierSet
	PrimaryKey string
	held       bool
}

func NewModifierComboTrigger(modifiers ModifierSet, primaryKey string) *ModifierComboTrigger {
	return &ModifierComboTrigger{Modifiers: modifiers, PrimaryKey: primaryKey}
}

func (t *ModifierComboTrigger) Name() string { return "MODIFIER_COMBO" }

func (t *ModifierComboTrigger) OnKeyPressed(evt NormalizedKeyEvent) bool {
	if t.held || evt.Key != t.PrimaryKey {
		return false
	}
	if !t.Modifiers.SubsetOf(evt.Modifiers) {
		return false
	}
	t.held = true
	return true
}

func (t *ModifierComboTrigger) OnKeyReleased(evt NormalizedKeyEvent) bool {
	if !t.held || evt.Key != t.PrimaryKey {
		return false
	}
	t.held = false
	return true
}
