// Package watch turns board file edits into session triggers.
package watch

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid triggers into one callback carrying the last value.
type Debouncer[T any] struct {
	window   time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	last     T
	callback func(T)
}

func NewDebouncer[T any](window time.Duration, callback func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		window:   window,
		callback: callback,
	}
}

// Trigger records v and restarts the window.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = v
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	v := d.last
	d.mu.Unlock()
	d.callback(v)
}

// Stop cancels any pending callback.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}
