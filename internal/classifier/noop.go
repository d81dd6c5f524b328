package classifier

import "context"

// Noop ignores classification requests. Used when no classifier backend is
// configured.
type Noop struct{}

// NewNoop returns a Noop classifier.
func NewNoop() Noop {
	return Noop{}
}

// Classify does nothing.
func (Noop) Classify(context.Context, string) error {
	return nil
}
