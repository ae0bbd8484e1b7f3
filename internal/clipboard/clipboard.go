package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Writer copies detection labels to the system clipboard
type Writer struct {
	write func(string) error
}

func New() *Writer {
	return &Writer{write: clipboard.WriteAll}
}

// Copy replaces the clipboard contents with text; empty text is ignored
func (w *Writer) Copy(text string) error {
	if text == "" {
		return nil
	}
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard unsupported on this system")
	}
	if err := w.write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
