//go:build linux

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/keysym.h>
#include <stdlib.h>

Display* displayPtr = NULL;

static unsigned int lockVariants[] = {0, LockMask, Mod2Mask, LockMask | Mod2Mask};

// grabKey returns the grabbed keycode, or 0 on failure. The grab is repeated
// with CapsLock and NumLock held so they do not swallow the hotkey.
int grabKey(const char* keysymName, int modifiers) {
    if (displayPtr == NULL) {
        displayPtr = XOpenDisplay(NULL);
    }
    if (displayPtr == NULL) return 0;

    KeySym sym = XStringToKeysym(keysymName);
    if (sym == NoSymbol) return 0;
    KeyCode keycode = XKeysymToKeycode(displayPtr, sym);
    if (keycode == 0) return 0;

    Window root = DefaultRootWindow(displayPtr);
    for (int i = 0; i < 4; i++) {
        XGrabKey(displayPtr, keycode, modifiers | lockVariants[i], root, False, GrabModeAsync, GrabModeAsync);
    }
    XSelectInput(displayPtr, root, KeyPressMask | KeyReleaseMask);
    XSync(displayPtr, False);

    return keycode;
}

void ungrabKey(int keycode, int modifiers) {
    if (displayPtr == NULL) return;
    Window root = DefaultRootWindow(displayPtr);
    for (int i = 0; i < 4; i++) {
        XUngrabKey(displayPtr, keycode, modifiers | lockVariants[i], root);
    }
    XSync(displayPtr, False);
}

int checkEvent(int* keycode, int* pressed) {
    if (displayPtr == NULL) return 0;

    XEvent event;
    if (XPending(displayPtr) > 0) {
        XNextEvent(displayPtr, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            *keycode = event.xkey.keycode;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}

void closeDisplay() {
    if (displayPtr != NULL) {
        XCloseDisplay(displayPtr);
        displayPtr = NULL;
    }
}
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

type grab struct {
	keycode   int
	modifiers int
}

type linuxManager struct {
	mu        sync.Mutex
	callbacks map[int]func(bool)
	grabs     map[string]grab
	stop      chan struct{}
	once      sync.Once
}

// New creates a new Linux hotkey manager using X11
func New() (Manager, error) {
	mgr := &linuxManager{
		callbacks: make(map[int]func(bool)),
		grabs:     make(map[string]grab),
		stop:      make(chan struct{}),
	}

	go mgr.eventLoop()

	return mgr, nil
}

func (m *linuxManager) Register(accel string, callback func(pressed bool)) error {
	a, err := Parse(accel)
	if err != nil {
		return err
	}

	name := C.CString(a.x11Keysym())
	defer C.free(unsafe.Pointer(name))

	modifiers := a.x11Modifiers()
	keycode := int(C.grabKey(name, C.int(modifiers)))
	if keycode == 0 {
		return fmt.Errorf("failed to grab %s", a)
	}

	m.mu.Lock()
	m.callbacks[keycode] = callback
	m.grabs[a.String()] = grab{keycode: keycode, modifiers: modifiers}
	m.mu.Unlock()
	return nil
}

func (m *linuxManager) eventLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			var keycode, pressed C.int
			if C.checkEvent(&keycode, &pressed) != 0 {
				m.mu.Lock()
				cb, ok := m.callbacks[int(keycode)]
				m.mu.Unlock()
				if ok {
					cb(pressed == 1)
				}
			}
		}
	}
}

func (m *linuxManager) Unregister(accel string) error {
	a, err := Parse(accel)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.grabs[a.String()]
	if !ok {
		return nil
	}
	C.ungrabKey(C.int(g.keycode), C.int(g.modifiers))
	delete(m.grabs, a.String())
	delete(m.callbacks, g.keycode)
	return nil
}

func (m *linuxManager) Close() error {
	m.once.Do(func() {
		close(m.stop)
		m.mu.Lock()
		for name, g := range m.grabs {
			C.ungrabKey(C.int(g.keycode), C.int(g.modifiers))
			delete(m.grabs, name)
		}
		m.mu.Unlock()
	})
	return nil
}
