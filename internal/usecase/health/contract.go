package health

import "context"

// Pinger checks the availability of one component.
type Pinger interface {
	Ping(ctx context.Context) error
}
