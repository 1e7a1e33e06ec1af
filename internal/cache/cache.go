// Package cache keeps the last known good content document on the local host
// so the site can start without the hosted database.
package cache

import (
	"context"
	"errors"
)

// ErrMiss reports that no document has been stored yet.
var ErrMiss = errors.New("cache miss")

// Nop never holds a document and accepts every write.
type Nop struct{}

func (Nop) Read(context.Context) ([]byte, error) { return nil, ErrMiss }

func (Nop) Write(context.Context, []byte) error { return nil }
