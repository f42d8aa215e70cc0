package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wrale/automower-session/internal/mowerapi"
	"github.com/wrale/automower-session/internal/mowerstate"
)

type mowerLister interface {
	ListMowers(ctx context.Context) ([]mowerapi.Mower, error)
}

// seedStatuses fills the store from the REST API so statuses are known
// before the first stream event arrives
func seedStatuses(ctx context.Context, api mowerLister, store mowerstate.Store, logger *slog.Logger) error {
	mowers, err := api.ListMowers(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range mowers {
		st := mowerstate.FromEvent(mowers[i].StatusEvent(), now)
		if err := store.SaveStatus(ctx, st); err != nil {
			return fmt.Errorf("saving status of %s: %w", st.MowerID, err)
		}
	}

	logger.Info("seeded mower statuses", slog.Int("mowers", len(mowers)))
	return nil
}
