package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/damas"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
)

const (
	joinCodeLength   = 8
	maxCodeAttempts  = 5
	defaultWinScore  = 10
	transitionCreate = "create"
	transitionJoin   = "join"
	transitionMove   = "move"
	transitionResign = "resign"

	// followUpTimeout bounds the stats update and notification of a committed transition.
	followUpTimeout = 10 * time.Second
)

type matchRepo interface {
	Create(ctx context.Context, match entity.Match) error
	Save(ctx context.Context, match entity.Match) error
	GetByID(ctx context.Context, id string) (entity.Match, error)
	GetByCode(ctx context.Context, code string) (entity.Match, error)
	ListWaiting(ctx context.Context) ([]entity.Match, error)
	ListByPlayer(ctx context.Context, playerID string) ([]entity.Match, error)
}

type statsRepo interface {
	GetByID(ctx context.Context, id string) (entity.User, error)
	GetMany(ctx context.Context, ids []string) (map[string]entity.User, error)
	RecordResult(ctx context.Context, winnerID string, playerIDs []string, winScore int) error
}

type notifier interface {
	Notify(ctx context.Context, snapshot entity.MatchSnapshot) error
}

type MatchOptions struct {
	// DefaultTimeLimit is used when Create gets no time limit, in seconds.
	DefaultTimeLimit int
	// WinScore is added to the winner's score.
	WinScore int
}

// MatchManager drives match transitions. At most one transition per match runs at a time.
type MatchManager struct {
	logger *zap.Logger

	matchRepo matchRepo
	userRepo  statsRepo
	notifier  notifier

	locks   *keyedLocker
	options MatchOptions

	now     func() time.Time
	newID   func() string
	newCode func() string
}

func NewMatchManager(logger *zap.Logger, matchRepo matchRepo, userRepo statsRepo, notifier notifier, options MatchOptions) *MatchManager {
	if options.DefaultTimeLimit <= 0 {
		options.DefaultTimeLimit = entity.DefaultTimeLimit
	}

	if options.WinScore <= 0 {
		options.WinScore = defaultWinScore
	}

	return &MatchManager{
		logger: logger.With(zap.String("component", "match_manager")),

		matchRepo: matchRepo,
		userRepo:  userRepo,
		notifier:  notifier,

		locks:   newKeyedLocker(),
		options: options,

		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		newCode: newJoinCode,
	}
}

// newJoinCode returns the first hex characters of a random UUID, upper-cased.
func newJoinCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:joinCodeLength])
}

// Create opens a Waiting match with the requester as White. A zero timeLimit uses the default budget.
func (that *MatchManager) Create(ctx context.Context, requesterID string, timeLimit int) (entity.MatchSnapshot, error) {
	log := that.logger.With(zap.String("method", "Create"), zap.String("player_id", requesterID))

	if timeLimit < 0 {
		return entity.MatchSnapshot{}, fmt.Errorf("%w: negative time limit %d", apperror.ErrBadRequest, timeLimit)
	}

	if timeLimit == 0 {
		timeLimit = that.options.DefaultTimeLimit
	}

	requester, err := that.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to get requester: %w", err)
	}

	var match entity.Match
	for attempt := 1; ; attempt++ {
		match = entity.NewMatch(that.newID(), that.newCode(), requester.Ref(), timeLimit, that.now())
		match.Version = 1

		err = that.matchRepo.Create(ctx, match)
		if err == nil {
			break
		}

		if !errors.Is(err, apperror.ErrConflict) || attempt == maxCodeAttempts {
			return entity.MatchSnapshot{}, fmt.Errorf("failed to create match: %w", err)
		}

		log.Warn("join code collision, retrying", zap.String("code", match.Code), zap.Int("attempt", attempt))
	}

	ctx, cancel := followUpContext(ctx)
	defer cancel()

	log.Info("match transition applied",
		zap.String("transition", transitionCreate),
		zap.String("match_id", match.ID),
		zap.String("status", string(match.Status)),
	)

	snapshot := that.snapshot(ctx, match)
	that.notify(ctx, snapshot)

	return snapshot, nil
}

// Join seats the joiner as Black.
func (that *MatchManager) Join(ctx context.Context, matchID, joinerID string) (entity.MatchSnapshot, error) {
	joiner, err := that.userRepo.GetByID(ctx, joinerID)
	if err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to get joiner: %w", err)
	}

	return that.transition(ctx, matchID, transitionJoin, func(match entity.Match, now time.Time) (entity.Match, error) {
		return match.Join(joiner.Ref(), now)
	})
}

// Move plays from -> to for the mover.
func (that *MatchManager) Move(ctx context.Context, matchID, moverID string, from, to damas.Cell) (entity.MatchSnapshot, error) {
	return that.transition(ctx, matchID, transitionMove, func(match entity.Match, now time.Time) (entity.Match, error) {
		return match.Move(moverID, from, to, now)
	})
}

// Resign abandons the match in favour of the resigner's opponent.
func (that *MatchManager) Resign(ctx context.Context, matchID, resignerID string) (entity.MatchSnapshot, error) {
	return that.transition(ctx, matchID, transitionResign, func(match entity.Match, now time.Time) (entity.Match, error) {
		return match.Resign(resignerID, now)
	})
}

func (that *MatchManager) GetByID(ctx context.Context, matchID string) (entity.MatchSnapshot, error) {
	match, err := that.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to get match: %w", err)
	}

	return that.snapshot(ctx, match), nil
}

func (that *MatchManager) GetByCode(ctx context.Context, code string) (entity.MatchSnapshot, error) {
	match, err := that.matchRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to get match by code: %w", err)
	}

	return that.snapshot(ctx, match), nil
}

func (that *MatchManager) ListWaiting(ctx context.Context) ([]entity.MatchSnapshot, error) {
	matches, err := that.matchRepo.ListWaiting(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting matches: %w", err)
	}

	return that.snapshots(ctx, matches), nil
}

func (that *MatchManager) ListMine(ctx context.Context, playerID string) ([]entity.MatchSnapshot, error) {
	matches, err := that.matchRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list player matches: %w", err)
	}

	return that.snapshots(ctx, matches), nil
}

// transition runs load, apply, save, stats and notify for one match under its lock.
// A failing apply or save leaves the stored match untouched.
func (that *MatchManager) transition(
	ctx context.Context,
	matchID, name string,
	apply func(match entity.Match, now time.Time) (entity.Match, error),
) (entity.MatchSnapshot, error) {
	log := that.logger.With(zap.String("method", name), zap.String("match_id", matchID))

	unlock := that.locks.Lock(matchID)
	defer unlock()

	current, err := that.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to get match: %w", err)
	}

	next, err := apply(current, that.now())
	if err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to %s: %w", name, err)
	}

	next.Version = current.Version + 1
	if err = that.matchRepo.Save(ctx, next); err != nil {
		return entity.MatchSnapshot{}, fmt.Errorf("failed to save match: %w", err)
	}

	// the match is committed, so its stats and notification must not depend on the caller staying around
	ctx, cancel := followUpContext(ctx)
	defer cancel()

	log.Info("match transition applied",
		zap.String("transition", name),
		zap.String("status", string(next.Status)),
		zap.Int("moves", len(next.Moves)),
	)

	if next.IsOver() && !current.IsOver() {
		that.recordResult(ctx, next)
	}

	snapshot := that.snapshot(ctx, next)
	that.notify(ctx, snapshot)

	return snapshot, nil
}

// followUpContext detaches ctx from its caller's cancellation and bounds it by followUpTimeout.
func followUpContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
}

// recordResult updates the players' stats. A match without a winner changes nothing.
func (that *MatchManager) recordResult(ctx context.Context, match entity.Match) {
	log := that.logger.With(zap.String("method", "recordResult"), zap.String("match_id", match.ID))

	if match.Winner == nil {
		log.Info("match ended without a winner, stats unchanged")
		return
	}

	if err := that.userRepo.RecordResult(ctx, match.Winner.ID, match.PlayerIDs(), that.options.WinScore); err != nil {
		log.Error("failed to record match result", zap.Error(err))
	}
}

func (that *MatchManager) notify(ctx context.Context, snapshot entity.MatchSnapshot) {
	if err := that.notifier.Notify(ctx, snapshot); err != nil {
		that.logger.Error("failed to notify",
			zap.String("method", "notify"),
			zap.String("match_id", snapshot.ID),
			zap.Error(err),
		)
	}
}

func (that *MatchManager) snapshot(ctx context.Context, match entity.Match) entity.MatchSnapshot {
	users, err := that.userRepo.GetMany(ctx, match.PlayerIDs())
	if err != nil {
		that.logger.Warn("failed to load player stats",
			zap.String("method", "snapshot"),
			zap.String("match_id", match.ID),
			zap.Error(err),
		)
	}

	return entity.NewSnapshot(match, users)
}

func (that *MatchManager) snapshots(ctx context.Context, matches []entity.Match) []entity.MatchSnapshot {
	ids := make([]string, 0, len(matches)*2)
	for _, match := range matches {
		ids = append(ids, match.PlayerIDs()...)
	}

	users, err := that.userRepo.GetMany(ctx, ids)
	if err != nil {
		that.logger.Warn("failed to load player stats", zap.String("method", "snapshots"), zap.Error(err))
	}

	result := make([]entity.MatchSnapshot, 0, len(matches))
	for _, match := range matches {
		result = append(result, entity.NewSnapshot(match, users))
	}

	return result
}
