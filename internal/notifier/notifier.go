package notifier

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/damas-backend/internal/entity"
)

type Notifier interface {
	Notify(ctx context.Context, snapshot entity.MatchSnapshot) error
}

// Fanout delivers a snapshot to every notifier, even when some of them fail.
type Fanout []Notifier

func (that Fanout) Notify(ctx context.Context, snapshot entity.MatchSnapshot) error {
	var errs []error

	for _, notifier := range that {
		if err := notifier.Notify(ctx, snapshot); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Channel is the pub/sub channel carrying the snapshots of one match.
func Channel(matchID string) string {
	return "match:" + matchID + ":events"
}
