package hotkey

import (
	"fmt"
	"strings"
	"time"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/dictation-core/dictation/pkg/logging"
)

// modifierBit is one bit of the last-known modifier bitmask this source
// diffs incoming events against, reconstructing PRESSED/RELEASED
// transitions the platform does not emit directly for modifier keys.
type modifierBit struct {
	modifier Modifier
	leftKey  string
	rightKey string
}

var trackedModifiers = []modifierBit{
	{Shift, "LEFT_SHIFT", "RIGHT_SHIFT"},
	{Control, "LEFT_CONTROL", "RIGHT_CONTROL"},
	{Alt, "LEFT_ALT", "RIGHT_ALT"},
	{Meta, "LEFT_META", "RIGHT_META"},
}

// evdevModifierCodes maps the kernel's modifier key codes to the tracked
// modifier and its location-specific canonical name. Keys not listed here
// are passed through by handleKeyEvent via evdev's own KEY name, stripped
// of its "KEY_" prefix.
var evdevModifierCodes = map[uint16]modifierBit{
	evdev.KEY_LEFTSHIFT:  {Shift, "LEFT_SHIFT", ""},
	evdev.KEY_RIGHTSHIFT: {Shift, "", "RIGHT_SHIFT"},
	evdev.KEY_LEFTCTRL:   {Control, "LEFT_CONTROL", ""},
	evdev.KEY_RIGHTCTRL:  {Control, "", "RIGHT_CONTROL"},
	evdev.KEY_LEFTALT:    {Alt, "LEFT_ALT", ""},
	evdev.KEY_RIGHTALT:   {Alt, "", "RIGHT_ALT"},
	evdev.KEY_LEFTMETA:   {Meta, "LEFT_META", ""},
	evdev.KEY_RIGHTMETA:  {Meta, "", "RIGHT_META"},
}

// EvdevSource reads raw input events from a Linux evdev device node and
// emits NormalizedKeyEvents, reconstructing modifier press/release edges
// by diffing the live modifier set against the last-known one.
type EvdevSource struct {
	devicePath string
	logger     logging.Logger

	device  *evdev.InputDevice
	active  map[Modifier]struct{}
	stopCh  chan struct{}
}

// NewEvdevSource builds a source bound to a device node (e.g.
// "/dev/input/event4").
func NewEvdevSource(devicePath string, logger logging.Logger) *EvdevSource {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &EvdevSource{
		devicePath: devicePath,
		logger:     logger,
		active:     make(map[Modifier]struct{}),
		stopCh:     make(chan struct{}),
	}
}

// Register opens the device and starts delivering events to onEvent until
// Unregister is called. onEvent is invoked from a dedicated goroutine.
func (s *EvdevSource) Register(onEvent func(NormalizedKeyEvent)) error {
	dev, err := evdev.Open(s.devicePath)
	if err != nil {
		return fmt.Errorf("hotkey: opening evdev device %s: %w", s.devicePath, err)
	}
	s.device = dev

	go s.readLoop(onEvent)
	return nil
}

// Unregister stops the read loop and releases the device.
func (s *EvdevSource) Unregister() {
	close(s.stopCh)
	if s.device != nil {
		s.device.File.Close()
	}
}

func (s *EvdevSource) readLoop(onEvent func(NormalizedKeyEvent)) {
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		events, err := s.device.Read()
		if err != nil {
			s.logger.Warn("evdev read failed", "device", s.devicePath, "error", err)
			return
		}

		for _, ev := range events {
			if ev.Type != evdev.EV_KEY {
				continue
			}
			s.handleKeyEvent(ev, onEvent)
		}
	}
}

// handleKeyEvent converts one raw EV_KEY event into zero or more
// NormalizedKeyEvents: one for the key itself, plus synthesized
// PRESSED/RELEASED transitions for any modifier whose tracked bit flips.
func (s *EvdevSource) handleKeyEvent(ev evdev.InputEvent, onEvent func(NormalizedKeyEvent)) {
	whenMs := time.Now().UnixMilli()
	code := uint16(ev.Code)

	if mb, ok := evdevModifierCodes[code]; ok {
		s.emitModifierTransition(mb, ev.Value != 0, whenMs, onEvent)
		return
	}

	kind := Released
	switch ev.Value {
	case 1, 2: // down, autorepeat
		kind = Pressed
	case 0:
		kind = Released
	}

	name := strings.TrimPrefix(evdev.KEY[int(code)], "KEY_")
	mods := s.snapshotModifiers()
	onEvent(NewNormalizedKeyEvent(kind, name, mods, whenMs))
}

func (s *EvdevSource) emitModifierTransition(mb modifierBit, down bool, whenMs int64, onEvent func(NormalizedKeyEvent)) {
	_, wasDown := s.active[mb.modifier]
	if down == wasDown {
		return
	}

	keyName := mb.leftKey
	if keyName == "" {
		keyName = mb.rightKey
	}

	if down {
		s.active[mb.modifier] = struct{}{}
	} else {
		delete(s.active, mb.modifier)
	}

	kind := Released
	if down {
		kind = Pressed
	}
	onEvent(NewNormalizedKeyEvent(kind, keyName, s.snapshotModifiers(), whenMs))
}

func (s *EvdevSource) snapshotModifiers() ModifierSet {
	mods := make(ModifierSet, len(s.active))
	for m := range s.active {
		mods[m] = struct{}{}
	}
	return mods
}
