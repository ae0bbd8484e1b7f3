package hotkey

import (
	"fmt"
	"strings"
)

// Modifier is a bit set of held modifier keys
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModSuper
)

// Accelerator is a parsed "Mod+Mod+Key" string
type Accelerator struct {
	Mods Modifier
	Key  string // canonical: "Space", "A".."Z", "0".."9", "F1".."F12"
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"cmd":     ModSuper,
	"command": ModSuper,
	"super":   ModSuper,
	"meta":    ModSuper,
}

// Parse reads an accelerator such as "Alt+Space" or "Ctrl+Shift+F9".
// Matching is case-insensitive and exactly one non-modifier key is required.
func Parse(accel string) (Accelerator, error) {
	var a Accelerator
	if strings.TrimSpace(accel) == "" {
		return a, fmt.Errorf("empty accelerator")
	}

	for _, part := range strings.Split(accel, "+") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return a, fmt.Errorf("invalid accelerator %q", accel)
		}
		if m, ok := modifierNames[name]; ok {
			a.Mods |= m
			continue
		}
		if a.Key != "" {
			return a, fmt.Errorf("invalid accelerator %q: more than one key", accel)
		}
		key, ok := canonicalKey(name)
		if !ok {
			return a, fmt.Errorf("invalid accelerator %q: unknown key %q", accel, part)
		}
		a.Key = key
	}

	if a.Key == "" {
		return a, fmt.Errorf("invalid accelerator %q: no key", accel)
	}
	return a, nil
}

func canonicalKey(name string) (string, bool) {
	switch {
	case name == "space":
		return "Space", true
	case len(name) == 1 && name[0] >= 'a' && name[0] <= 'z':
		return strings.ToUpper(name), true
	case len(name) == 1 && name[0] >= '0' && name[0] <= '9':
		return name, true
	case len(name) >= 2 && name[0] == 'f':
		var n int
		if _, err := fmt.Sscanf(name[1:], "%d", &n); err == nil && n >= 1 && n <= 12 && fmt.Sprint(n) == name[1:] {
			return "F" + name[1:], true
		}
	}
	return "", false
}

func (a Accelerator) String() string {
	var parts []string
	if a.Mods&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if a.Mods&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if a.Mods&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if a.Mods&ModSuper != 0 {
		parts = append(parts, "Super")
	}
	return strings.Join(append(parts, a.Key), "+")
}

// X11 modifier masks
const (
	x11ShiftMask   = 1 << 0
	x11ControlMask = 1 << 2
	x11Mod1Mask    = 1 << 3 // Alt
	x11Mod4Mask    = 1 << 6 // Super
)

func (a Accelerator) x11Modifiers() int {
	var mask int
	if a.Mods&ModShift != 0 {
		mask |= x11ShiftMask
	}
	if a.Mods&ModCtrl != 0 {
		mask |= x11ControlMask
	}
	if a.Mods&ModAlt != 0 {
		mask |= x11Mod1Mask
	}
	if a.Mods&ModSuper != 0 {
		mask |= x11Mod4Mask
	}
	return mask
}

// x11Keysym is the name XStringToKeysym understands
func (a Accelerator) x11Keysym() string {
	if a.Key == "Space" {
		return "space"
	}
	if len(a.Key) == 1 {
		return strings.ToLower(a.Key)
	}
	return a.Key
}

// Carbon modifier flags
const (
	carbonCmdKey     = 0x0100
	carbonShiftKey   = 0x0200
	carbonOptionKey  = 0x0800
	carbonControlKey = 0x1000
)

func (a Accelerator) carbonModifiers() uint32 {
	var flags uint32
	if a.Mods&ModSuper != 0 {
		flags |= carbonCmdKey
	}
	if a.Mods&ModShift != 0 {
		flags |= carbonShiftKey
	}
	if a.Mods&ModAlt != 0 {
		flags |= carbonOptionKey
	}
	if a.Mods&ModCtrl != 0 {
		flags |= carbonControlKey
	}
	return flags
}

// ANSI virtual key codes from HIToolbox/Events.h
var carbonKeyCodes = map[string]uint32{
	"A": 0x00, "S": 0x01, "D": 0x02, "F": 0x03, "H": 0x04, "G": 0x05,
	"Z": 0x06, "X": 0x07, "C": 0x08, "V": 0x09, "B": 0x0B, "Q": 0x0C,
	"W": 0x0D, "E": 0x0E, "R": 0x0F, "Y": 0x10, "T": 0x11, "1": 0x12,
	"2": 0x13, "3": 0x14, "4": 0x15, "6": 0x16, "5": 0x17, "9": 0x19,
	"7": 0x1A, "8": 0x1C, "0": 0x1D, "O": 0x1F, "U": 0x20, "I": 0x22,
	"P": 0x23, "L": 0x25, "J": 0x26, "K": 0x28, "N": 0x2D, "M": 0x2E,
	"Space": 0x31,

	"F1": 0x7A, "F2": 0x78, "F3": 0x63, "F4": 0x76, "F5": 0x60, "F6": 0x61,
	"F7": 0x62, "F8": 0x64, "F9": 0x65, "F10": 0x6D, "F11": 0x67, "F12": 0x6F,
}

func (a Accelerator) carbonKeyCode() (uint32, bool) {
	code, ok := carbonKeyCodes[a.Key]
	return code, ok
}

// windowsVirtualKey returns the Win32 VK_ code for the key
func (a Accelerator) windowsVirtualKey() uint16 {
	switch {
	case a.Key == "Space":
		return 0x20
	case len(a.Key) == 1:
		return uint16(a.Key[0]) // VK_0..VK_9 and VK_A..VK_Z match ASCII
	default:
		var n int
		fmt.Sscanf(a.Key[1:], "%d", &n)
		return 0x70 + uint16(n-1) // VK_F1
	}
}
