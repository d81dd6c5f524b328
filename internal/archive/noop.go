package archive

import "context"

// Noop discards pages. Used when archiving is disabled.
type Noop struct{}

// NewNoop returns a Noop archiver.
func NewNoop() Noop {
	return Noop{}
}

// SavePage discards the page and returns an empty URI.
func (Noop) SavePage(context.Context, string, string, []byte) (string, error) {
	return "", nil
}
