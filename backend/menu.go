package backend

import (
	"sync"
)

type Visibility int

const (
	Hidden Visibility = iota
	Shown
)

func (v Visibility) String() string {
	if v == Shown {
		return "shown"
	}
	return "hidden"
}

// Menu is the visibility state of the slide-out feed menu. The zero value is hidden.
type Menu struct {
	mutex sync.Mutex
	shown bool
}

func (m *Menu) Visibility() Visibility {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.shown {
		return Shown
	}
	return Hidden
}

func (m *Menu) Hidden() bool {
	return m.Visibility() == Hidden
}

// Toggle flips the visibility and returns the new state.
func (m *Menu) Toggle() Visibility {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.shown = !m.shown
	if m.shown {
		return Shown
	}
	return Hidden
}
