package tray

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/petems/siren-tray/internal/config"
	"github.com/rs/zerolog"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		view   view
		title  string
		status string
		result string
		toggle string
	}{
		{
			name:   "idle",
			view:   view{},
			title:  "🚨 🟢",
			status: "Ready",
			result: "No detections yet",
			toggle: "Start listening",
		},
		{
			name:   "recording",
			view:   view{phase: phaseRecording},
			title:  "🚨 🔴",
			status: "🎙️ Listening...",
			result: "No detections yet",
			toggle: "Stop listening",
		},
		{
			name:   "uploading keeps previous result",
			view:   view{phase: phaseUploading, result: "🚓 Police siren detected"},
			title:  "🚨 🟡",
			status: "⏳ Processing...",
			result: "🚓 Police siren detected",
			toggle: "Stop listening",
		},
		{
			name:   "result shown after stop",
			view:   view{result: "🚑 Ambulance siren detected"},
			title:  "🚨 🟢",
			status: "Ready",
			result: "🚑 Ambulance siren detected",
			toggle: "Start listening",
		},
		{
			name:   "error replaces result",
			view:   view{result: "✅ Ordinary city traffic noise", err: "❌ Could not reach the classification server"},
			title:  "🚨 ⚪️",
			status: "Ready",
			result: "❌ Could not reach the classification server",
			toggle: "Start listening",
		},
		{
			name:   "stopping",
			view:   view{phase: phaseRecording, stopping: true},
			title:  "🚨 🔴",
			status: "🎙️ Listening...",
			result: "No detections yet",
			toggle: "Stopping...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := render(tt.view)
			if d.Title != tt.title {
				t.Errorf("title: expected %q, got %q", tt.title, d.Title)
			}
			if d.Status != tt.status {
				t.Errorf("status: expected %q, got %q", tt.status, d.Status)
			}
			if d.Result != tt.result {
				t.Errorf("result: expected %q, got %q", tt.result, d.Result)
			}
			if d.Toggle != tt.toggle {
				t.Errorf("toggle: expected %q, got %q", tt.toggle, d.Toggle)
			}
			if d.ToggleEnabled == tt.view.stopping {
				t.Errorf("toggle enabled should be %v", !tt.view.stopping)
			}
		})
	}
}

func TestRenderHotkeyHint(t *testing.T) {
	d := render(view{hotkey: "Alt+Space"})
	if d.Toggle != "Start listening (Alt+Space)" {
		t.Errorf("unexpected toggle %q", d.Toggle)
	}

	d = render(view{hotkey: "Alt+Space", phase: phaseUploading, stopping: true})
	if d.Toggle != "Stopping..." {
		t.Errorf("disabled toggle should not show the hotkey, got %q", d.Toggle)
	}
	if !strings.Contains(d.Tooltip, "Processing") {
		t.Errorf("tooltip should carry the status, got %q", d.Tooltip)
	}
}

type mockController struct {
	mu      sync.Mutex
	starts  int
	stops   int
	last    string
	stopped chan struct{}
}

func (m *mockController) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
}

func (m *mockController) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stops++
	m.mu.Unlock()
	close(m.stopped)
	return nil
}

func (m *mockController) LastResult() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type mockClipboard struct {
	copied []string
}

func (m *mockClipboard) Copy(text string) error {
	m.copied = append(m.copied, text)
	return nil
}

func newTestUI(ctrl Controller, clip ClipboardWriter) *UI {
	return New(Config{
		Controller: ctrl,
		Clipboard:  clip,
		Settings:   &config.Config{},
		Logger:     zerolog.Nop(),
	})
}

// Status updates before the menu exists only change the view
func TestStatusUpdatesTrackView(t *testing.T) {
	u := newTestUI(&mockController{}, nil)

	u.SetRecording()
	if !u.view.listening() || u.view.phase != phaseRecording {
		t.Fatalf("expected recording view, got %+v", u.view)
	}

	u.SetUploading()
	u.SetResult("🚒 Fire truck siren detected")
	if u.view.phase != phaseUploading || u.view.result != "🚒 Fire truck siren detected" {
		t.Errorf("unexpected view %+v", u.view)
	}

	u.SetError("❌ Microphone is busy")
	if u.view.listening() {
		t.Error("an error should return the view to idle")
	}
	if render(u.view).Result != "❌ Microphone is busy" {
		t.Errorf("error should be shown inline, got %q", render(u.view).Result)
	}

	u.SetRecording()
	if u.view.err != "" {
		t.Error("a new recording should clear the error")
	}
}

func TestToggle(t *testing.T) {
	ctrl := &mockController{stopped: make(chan struct{})}
	u := newTestUI(ctrl, nil)

	u.toggle()
	ctrl.mu.Lock()
	starts := ctrl.starts
	ctrl.mu.Unlock()
	if starts != 1 {
		t.Fatalf("expected Start on toggle from idle, got %d starts", starts)
	}

	u.SetRecording()
	u.toggle()
	<-ctrl.stopped

	if !u.view.stopping {
		t.Error("view should show stopping until the loop reports idle")
	}
	u.SetIdle()
	if u.view.stopping {
		t.Error("idle should clear the stopping flag")
	}
}

func TestCopyLast(t *testing.T) {
	ctrl := &mockController{last: "🚑 Ambulance siren detected"}
	clip := &mockClipboard{}
	u := newTestUI(ctrl, clip)

	u.copyLast()
	if len(clip.copied) != 1 || clip.copied[0] != "🚑 Ambulance siren detected" {
		t.Errorf("unexpected clipboard writes %v", clip.copied)
	}

	ctrl.last = ""
	u.copyLast()
	if len(clip.copied) != 1 {
		t.Error("nothing should be copied before the first result")
	}
}
