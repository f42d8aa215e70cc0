// Package mowerstate keeps the latest reported status of each mower
package mowerstate

import (
	"context"
	"errors"
)

// ErrInvalidStatus indicates a status without a mower identifier
var ErrInvalidStatus = errors.New("status has no mower id")

// Store defines the interface for mower status storage
type Store interface {
	// SaveStatus replaces the stored status of the mower
	SaveStatus(ctx context.Context, status *Status) error

	// GetStatus retrieves the latest status, or nil if none is known
	GetStatus(ctx context.Context, mowerID string) (*Status, error)

	// CheckHealth verifies the storage backend is healthy
	CheckHealth(ctx context.Context) error
}
