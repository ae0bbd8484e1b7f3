//go:build !darwin

package permissions

// Microphone is a no-op outside macOS; device errors surface when recording starts.
func Microphone() error {
	return nil
}

// Accessibility is a no-op outside macOS.
func Accessibility() error {
	return nil
}
