package queue

import "context"

// Publisher sends a derivation request onto the push transport.
// Delivery is at-least-once: consumers must tolerate duplicates and
// out-of-order arrival.
type Publisher interface {
	// Publish sends data with the given attributes and returns the message ID.
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}
