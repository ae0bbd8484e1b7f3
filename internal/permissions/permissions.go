package permissions

import (
	"errors"
	"fmt"
)

var (
	// ErrMicrophoneDenied means the user or system policy refused microphone access
	ErrMicrophoneDenied = errors.New("microphone permission denied")
	// ErrAccessibilityDenied means global hotkeys cannot be registered
	ErrAccessibilityDenied = errors.New("accessibility permission denied")
)

// Authorization status values as reported by AVFoundation
const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

func microphoneError(status int) error {
	switch status {
	case PermissionAuthorized:
		return nil
	case PermissionRestricted:
		return fmt.Errorf("%w: restricted by system policy", ErrMicrophoneDenied)
	case PermissionDenied:
		return fmt.Errorf("%w: enable it in System Settings → Privacy & Security → Microphone", ErrMicrophoneDenied)
	default:
		return fmt.Errorf("%w: status %d", ErrMicrophoneDenied, status)
	}
}
