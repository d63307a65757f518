package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/damas-backend/internal/damas"
)

// PlayerSummary is the public view of a player inside a snapshot.
type PlayerSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Played   int    `json:"played"`
	Won      int    `json:"won"`
	Score    int    `json:"score"`
}

// MatchSnapshot is the externally visible state of a match, sent to clients and subscribers.
type MatchSnapshot struct {
	ID         string                      `json:"id"`
	Code       string                      `json:"code"`
	White      PlayerSummary               `json:"white"`
	Black      *PlayerSummary              `json:"black,omitempty"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt *time.Time                  `json:"finished_at,omitempty"`
	Board      [damas.Size][damas.Size]int `json:"board"`
	Status     Status                      `json:"status"`
	Winner     *PlayerSummary              `json:"winner,omitempty"`
	Turn       damas.Side                  `json:"turn"`
	Clock      *Clock                      `json:"clock,omitempty"`
	History    string                      `json:"history"`
	Moves      []damas.Move                `json:"moves"`
}

// NewSnapshot builds the snapshot of match. users supplies stats for the seated players
// and may miss some of them.
func NewSnapshot(match Match, users map[string]User) MatchSnapshot {
	summary := func(ref PlayerRef) PlayerSummary {
		result := PlayerSummary{ID: ref.ID, Username: ref.Username}
		if user, ok := users[ref.ID]; ok {
			result.Played = user.Played
			result.Won = user.Won
			result.Score = user.Score
		}
		return result
	}

	snapshot := MatchSnapshot{
		ID:        match.ID,
		Code:      match.Code,
		White:     summary(match.White),
		StartedAt: match.StartedAt,
		Board:     match.Board.Grid(),
		Status:    match.Status,
		Turn:      match.Turn,
		History:   History(match.Moves),
		Moves:     append([]damas.Move{}, match.Moves...),
	}

	if match.Black != nil {
		black := summary(*match.Black)
		snapshot.Black = &black
	}

	if match.Winner != nil {
		winner := summary(*match.Winner)
		snapshot.Winner = &winner
	}

	if match.Clock != nil {
		clock := *match.Clock
		snapshot.Clock = &clock
	}

	if match.FinishedAt != nil {
		finishedAt := *match.FinishedAt
		snapshot.FinishedAt = &finishedAt
	}

	return snapshot
}

// History renders moves as "r,c:r,c;" entries.
func History(moves []damas.Move) string {
	var builder strings.Builder
	for _, move := range moves {
		builder.WriteString(move.String())
	}

	return builder.String()
}

// CurrentBoard decodes the board carried by the snapshot.
func (that MatchSnapshot) CurrentBoard() (damas.Board, error) {
	board, err := damas.BoardFromGrid(that.Board)
	if err != nil {
		return damas.Board{}, fmt.Errorf("failed to decode snapshot board: %w", err)
	}

	return board, nil
}

// ReplayBoard rebuilds the board from the snapshot's move log.
func (that MatchSnapshot) ReplayBoard() (damas.Board, error) {
	board, err := damas.Replay(that.Moves)
	if err != nil {
		return damas.Board{}, fmt.Errorf("failed to replay snapshot %s: %w", that.ID, err)
	}

	return board, nil
}
