package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
)

func (that *Server) handleJoin(ctx context.Context, sess *session, _ *Message) (entity.MatchSnapshot, error) {
	snapshot, err := that.matches.Join(ctx, sess.matchID, sess.userID)
	if err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to join match: %w", err)
	}

	return snapshot, nil
}

func (that *Server) handleMove(ctx context.Context, sess *session, msg *Message) (entity.MatchSnapshot, error) {
	var payload MovePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("%w: failed to unmarshal payload: %w", apperror.ErrBadRequest, err)
	}

	from, to, err := payload.cells()
	if err != nil {
		return entity.MatchSnapshot{}, err
	}

	snapshot, err := that.matches.Move(ctx, sess.matchID, sess.userID, from, to)
	if err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to move: %w", err)
	}

	return snapshot, nil
}

func (that *Server) handleResign(ctx context.Context, sess *session, _ *Message) (entity.MatchSnapshot, error) {
	snapshot, err := that.matches.Resign(ctx, sess.matchID, sess.userID)
	if err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to resign: %w", err)
	}

	return snapshot, nil
}
