package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/petems/siren-tray/internal/classify"
)

const appTitle = "Siren Tray"

// Desktop raises OS notifications for detections and failures
type Desktop struct {
	includeTraffic bool
	send           func(title, message string) error
}

func New(includeTraffic bool) *Desktop {
	return &Desktop{
		includeTraffic: includeTraffic,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Detection notifies about a classified clip. Non-siren predictions are
// skipped unless traffic notifications are enabled.
func (d *Desktop) Detection(prediction, label string) error {
	if !classify.Emergency(prediction) && !d.includeTraffic {
		return nil
	}
	return d.send(appTitle, label)
}

// Failure notifies that listening stopped because of an error
func (d *Desktop) Failure(message string) error {
	return d.send(appTitle, message)
}
