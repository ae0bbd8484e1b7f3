//go:build windows

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

type binding struct {
	hk   *hotkey.Hotkey
	stop chan struct{}
	wg   sync.WaitGroup
}

type windowsManager struct {
	mu       sync.Mutex
	bindings map[string]*binding
}

// New creates a new Windows hotkey manager using RegisterHotKey
func New() (Manager, error) {
	return &windowsManager{bindings: make(map[string]*binding)}, nil
}

func (m *windowsManager) Register(accel string, callback func(pressed bool)) error {
	a, err := Parse(accel)
	if err != nil {
		return err
	}

	var mods []hotkey.Modifier
	if a.Mods&ModCtrl != 0 {
		mods = append(mods, hotkey.ModCtrl)
	}
	if a.Mods&ModAlt != 0 {
		mods = append(mods, hotkey.ModAlt)
	}
	if a.Mods&ModShift != 0 {
		mods = append(mods, hotkey.ModShift)
	}
	if a.Mods&ModSuper != 0 {
		mods = append(mods, hotkey.ModWin)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bindings[a.String()]; ok {
		return fmt.Errorf("hotkey %s already registered", a)
	}

	hk := hotkey.New(mods, hotkey.Key(a.windowsVirtualKey()))
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %s: %w", a, err)
	}

	b := &binding{hk: hk, stop: make(chan struct{})}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-hk.Keydown():
				callback(true)
			case <-hk.Keyup():
				callback(false)
			case <-b.stop:
				return
			}
		}
	}()

	m.bindings[a.String()] = b
	return nil
}

func (m *windowsManager) Unregister(accel string) error {
	a, err := Parse(accel)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unregisterLocked(a.String())
}

func (m *windowsManager) unregisterLocked(name string) error {
	b, ok := m.bindings[name]
	if !ok {
		return nil
	}
	delete(m.bindings, name)

	close(b.stop)
	b.wg.Wait()
	if err := b.hk.Unregister(); err != nil {
		return fmt.Errorf("failed to unregister hotkey %s: %w", name, err)
	}
	return nil
}

func (m *windowsManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name := range m.bindings {
		if err := m.unregisterLocked(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
