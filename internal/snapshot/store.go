package snapshot

import (
	"context"
	"errors"
)

// ErrNoSnapshot means the destination holds no prior snapshot. It is not a
// failure: the registry simply starts empty.
var ErrNoSnapshot = errors.New("no snapshot found")

type Store interface {
	// Name identifies the backend in logs ("file", "sqlite", ...).
	Name() string
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Close() error
}

// Discard is a Store that keeps nothing. Used for the "none" driver.
type Discard struct{}

func (Discard) Name() string                            { return "none" }
func (Discard) Load(context.Context) (*Document, error) { return nil, ErrNoSnapshot }
func (Discard) Save(context.Context, *Document) error   { return nil }
func (Discard) Close() error                            { return nil }
