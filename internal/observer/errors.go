package observer

import "errors"

var (
	// ErrObserverPanic reports that an Observer's OnEvent panicked; the
	// Dispatcher recovers it so one misbehaving subscriber cannot take
	// down the workflow execution that is reporting progress to it.
	ErrObserverPanic = errors.New("observer: OnEvent panicked")

	// ErrNilObserver is returned by Dispatcher.Register for a nil Observer.
	ErrNilObserver = errors.New("observer: observer must not be nil")
)
