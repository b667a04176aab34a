package ports

import "context"

// AudioSource hands out the exclusive input handle for a recording session.
type AudioSource interface {
	Open(ctx context.Context) (AudioHandle, error)
}

// AudioHandle delivers encoded audio chunks until it is closed.
type AudioHandle interface {
	Chunks() <-chan []byte
	Close() error
}
