//go:build !linux && !darwin && !windows

package hotkey

// New reports ErrUnsupported; the tray menu still toggles listening.
func New() (Manager, error) {
	return nil, ErrUnsupported
}
