package entity

import (
	"fmt"
	"slices"
	"time"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/damas"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
	StatusAbandoned  Status = "abandoned"
)

// DefaultTimeLimit is the per-side budget in seconds used when a match is created without one.
const DefaultTimeLimit = 600

// PlayerRef identifies a player inside a match.
type PlayerRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Clock holds the remaining time per side in seconds. It is only stored for display.
type Clock struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// Match is treated as an immutable value: every transition returns a new Match
// and leaves the receiver untouched.
type Match struct {
	ID         string       `json:"id"`
	Code       string       `json:"code"`
	White      PlayerRef    `json:"white"`
	Black      *PlayerRef   `json:"black,omitempty"`
	Board      damas.Board  `json:"board"`
	Turn       damas.Side   `json:"turn"`
	Status     Status       `json:"status"`
	Winner     *PlayerRef   `json:"winner,omitempty"`
	Moves      []damas.Move `json:"moves"`
	Clock      *Clock       `json:"clock,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Version    int64        `json:"version"`
}

// NewMatch creates a Waiting match owned by white. A non-positive timeLimit falls back to DefaultTimeLimit.
func NewMatch(id, code string, white PlayerRef, timeLimit int, now time.Time) Match {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	return Match{
		ID:        id,
		Code:      code,
		White:     white,
		Board:     damas.NewBoard(),
		Turn:      damas.White,
		Status:    StatusWaiting,
		Moves:     []damas.Move{},
		Clock:     &Clock{White: timeLimit, Black: timeLimit},
		StartedAt: now,
	}
}

func (that Match) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that Match) IsInProgress() bool {
	return that.Status == StatusInProgress
}

// IsOver reports whether the match reached a terminal status.
func (that Match) IsOver() bool {
	return that.Status == StatusFinished || that.Status == StatusAbandoned
}

// SideOf returns the side played by playerID.
func (that Match) SideOf(playerID string) (damas.Side, bool) {
	switch {
	case playerID == "":
		return "", false
	case that.White.ID == playerID:
		return damas.White, true
	case that.Black != nil && that.Black.ID == playerID:
		return damas.Black, true
	default:
		return "", false
	}
}

// PlayerOf returns the player holding side.
func (that Match) PlayerOf(side damas.Side) *PlayerRef {
	switch side {
	case damas.White:
		white := that.White
		return &white
	case damas.Black:
		if that.Black == nil {
			return nil
		}
		black := *that.Black
		return &black
	default:
		return nil
	}
}

// PlayerIDs returns the ids of the seated players, White first.
func (that Match) PlayerIDs() []string {
	ids := []string{that.White.ID}
	if that.Black != nil {
		ids = append(ids, that.Black.ID)
	}

	return ids
}

// Join seats joiner as Black and starts the match.
func (that Match) Join(joiner PlayerRef, _ time.Time) (Match, error) {
	if !that.IsWaiting() {
		return that, fmt.Errorf("%w: match %s is %s", apperror.ErrInvalidState, that.ID, that.Status)
	}

	if joiner.ID == that.White.ID {
		return that, fmt.Errorf("%w: player %s already plays white", apperror.ErrAlreadyParticipant, joiner.ID)
	}

	next := that
	next.Black = &joiner
	next.Status = StatusInProgress

	return next, nil
}

// Move validates and plays a displacement for playerID.
func (that Match) Move(playerID string, from, to damas.Cell, now time.Time) (Match, error) {
	if !that.IsInProgress() {
		return that, fmt.Errorf("%w: match %s is %s", apperror.ErrInvalidState, that.ID, that.Status)
	}

	side, ok := that.SideOf(playerID)
	if !ok {
		return that, fmt.Errorf("%w: player %s", apperror.ErrNotAParticipant, playerID)
	}

	if side != that.Turn {
		return that, fmt.Errorf("%w: %s to move", apperror.ErrNotYourTurn, that.Turn)
	}

	move := damas.Move{From: from, To: to, Side: side}
	if !damas.IsLegal(that.Board, move, side) {
		return that, fmt.Errorf("%w: %s", apperror.ErrIllegalMove, move)
	}

	next := that
	next.Board = damas.Apply(that.Board, move, side)
	next.Moves = append(slices.Clone(that.Moves), move)
	next.Turn = side.Opponent()

	if damas.IsTerminal(next.Board) {
		next.Status = StatusFinished
		next.FinishedAt = &now

		if winner, ok := damas.Winner(next.Board); ok {
			next.Winner = next.PlayerOf(winner)
		}
	}

	return next, nil
}

// Resign ends the match in favour of the resigner's opponent.
func (that Match) Resign(playerID string, now time.Time) (Match, error) {
	if !that.IsInProgress() {
		return that, fmt.Errorf("%w: match %s is %s", apperror.ErrInvalidState, that.ID, that.Status)
	}

	side, ok := that.SideOf(playerID)
	if !ok {
		return that, fmt.Errorf("%w: player %s", apperror.ErrNotAParticipant, playerID)
	}

	next := that
	next.Status = StatusAbandoned
	next.Winner = that.PlayerOf(side.Opponent())
	next.FinishedAt = &now

	return next, nil
}

// ReplayBoard rebuilds the board from the move log.
func (that Match) ReplayBoard() (damas.Board, error) {
	board, err := damas.Replay(that.Moves)
	if err != nil {
		return damas.Board{}, fmt.Errorf("failed to replay match %s: %w", that.ID, err)
	}

	return board, nil
}
