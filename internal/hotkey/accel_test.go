package hotkey

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		mods Modifier
		key  string
	}{
		{"Alt+Space", ModAlt, "Space"},
		{"Ctrl+Space", ModCtrl, "Space"},
		{"control+shift+s", ModCtrl | ModShift, "S"},
		{"Cmd+Option+F9", ModSuper | ModAlt, "F9"},
		{" Super + 5 ", ModSuper, "5"},
		{"F12", 0, "F12"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.in, err)
			}
			if a.Mods != tt.mods || a.Key != tt.key {
				t.Errorf("Parse(%q) = %+v, want mods %v key %q", tt.in, a, tt.mods, tt.key)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "Alt+", "Alt+Ctrl", "Alt+Space+X", "Alt+Enter", "F13", "F01", "Hyper+A"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestAcceleratorString(t *testing.T) {
	a, err := Parse("shift+alt+ctrl+cmd+q")
	if err != nil {
		t.Fatal(err)
	}
	if got := a.String(); got != "Ctrl+Alt+Shift+Super+Q" {
		t.Errorf("unexpected canonical form %q", got)
	}
}

func TestPlatformMappings(t *testing.T) {
	a, _ := Parse("Alt+Space")
	if got := a.x11Modifiers(); got != x11Mod1Mask {
		t.Errorf("Alt should map to Mod1, got %#x", got)
	}
	if got := a.x11Keysym(); got != "space" {
		t.Errorf("unexpected keysym %q", got)
	}

	c, _ := Parse("Ctrl+Space")
	if got := c.carbonModifiers(); got != carbonControlKey {
		t.Errorf("Ctrl should map to controlKey, got %#x", got)
	}
	if code, ok := c.carbonKeyCode(); !ok || code != 49 {
		t.Errorf("Space should be key code 49, got %d (%v)", code, ok)
	}

	f, _ := Parse("Ctrl+Shift+F5")
	if got := f.x11Keysym(); got != "F5" {
		t.Errorf("unexpected keysym %q", got)
	}
	if got := f.x11Modifiers(); got != x11ControlMask|x11ShiftMask {
		t.Errorf("unexpected X11 mask %#x", got)
	}
	if got := f.carbonModifiers(); got != carbonControlKey|carbonShiftKey {
		t.Errorf("unexpected Carbon flags %#x", got)
	}
}

func TestWindowsVirtualKey(t *testing.T) {
	tests := map[string]uint16{
		"Space": 0x20,
		"A":     0x41,
		"Z":     0x5A,
		"0":     0x30,
		"F1":    0x70,
		"F12":   0x7B,
	}

	for key, want := range tests {
		a, err := Parse(key)
		if err != nil {
			t.Fatalf("Parse(%q): %v", key, err)
		}
		if got := a.windowsVirtualKey(); got != want {
			t.Errorf("%s: expected %#x, got %#x", key, want, got)
		}
	}
}
