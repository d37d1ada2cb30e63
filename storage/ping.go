package storage

import "context"

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping pings s when it implements Pinger and reports healthy otherwise.
func Ping(ctx context.Context, s any) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
