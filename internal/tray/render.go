package tray

type phase int

const (
	phaseIdle phase = iota
	phaseRecording
	phaseUploading
)

// view is everything the menu shows
type view struct {
	phase    phase
	stopping bool
	result   string
	err      string
	hotkey   string
}

type display struct {
	Title         string
	Tooltip       string
	Status        string
	Result        string
	Toggle        string
	ToggleEnabled bool
}

func (v view) listening() bool {
	return v.phase != phaseIdle
}

func render(v view) display {
	d := display{
		Toggle:        "Start listening",
		ToggleEnabled: true,
		Result:        "No detections yet",
	}

	switch v.phase {
	case phaseRecording:
		d.Title = "🚨 🔴"
		d.Status = "🎙️ Listening..."
	case phaseUploading:
		d.Title = "🚨 🟡"
		d.Status = "⏳ Processing..."
	default:
		d.Title = "🚨 🟢"
		d.Status = "Ready"
	}

	if v.listening() {
		d.Toggle = "Stop listening"
		if v.stopping {
			d.Toggle = "Stopping..."
			d.ToggleEnabled = false
		}
	}

	switch {
	case v.err != "":
		d.Result = v.err
		d.Title = "🚨 ⚪️"
	case v.result != "":
		d.Result = v.result
	}

	d.Tooltip = "Emergency sound detection: " + d.Status
	if v.hotkey != "" && d.ToggleEnabled {
		d.Toggle += " (" + v.hotkey + ")"
	}
	return d
}
