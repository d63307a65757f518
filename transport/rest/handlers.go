package rest

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/damas-backend/internal/damas"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
	"github.com/rocketscienceinc/damas-backend/pkg/handlers"
)

type matchUseCase interface {
	Create(ctx context.Context, requesterID string, timeLimit int) (entity.MatchSnapshot, error)
	Join(ctx context.Context, matchID, joinerID string) (entity.MatchSnapshot, error)
	Move(ctx context.Context, matchID, moverID string, from, to damas.Cell) (entity.MatchSnapshot, error)
	Resign(ctx context.Context, matchID, resignerID string) (entity.MatchSnapshot, error)

	GetByID(ctx context.Context, matchID string) (entity.MatchSnapshot, error)
	GetByCode(ctx context.Context, code string) (entity.MatchSnapshot, error)
	ListWaiting(ctx context.Context) ([]entity.MatchSnapshot, error)
	ListMine(ctx context.Context, playerID string) ([]entity.MatchSnapshot, error)
}

type userUseCase interface {
	Register(ctx context.Context, username string) (entity.User, error)
	Login(ctx context.Context, username string) (entity.User, error)
	GetByID(ctx context.Context, id string) (entity.User, error)
}

type authService interface {
	GenerateToken(userID string) (string, error)
	ParseToken(token string) (string, error)
}

type messageCatalog interface {
	ErrorMessage(code string, data any) string
}

type Handlers struct {
	logger *zap.Logger

	matches  matchUseCase
	users    userUseCase
	auth     authService
	messages messageCatalog
}

func NewHandlers(logger *zap.Logger, matches matchUseCase, users userUseCase, auth authService, messages messageCatalog) *Handlers {
	return &Handlers{
		logger:   logger.With(zap.String("component", "rest")),
		matches:  matches,
		users:    users,
		auth:     auth,
		messages: messages,
	}
}

// Routes registers every endpoint of the HTTP API. readiness checks back GET /ready.
func (that *Handlers) Routes(readiness ...func(ctx context.Context) error) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", handlers.PingHandler)
	mux.HandleFunc("GET /ready", handlers.ReadyHandler(readiness...))

	mux.HandleFunc("POST /api/auth/register", that.Register)
	mux.HandleFunc("POST /api/auth/login", that.Login)
	mux.Handle("GET /api/users/me", that.requireAuth(that.Me))

	mux.Handle("POST /api/matches", that.requireAuth(that.CreateMatch))
	mux.Handle("GET /api/matches", that.requireAuth(that.ListMine))
	mux.Handle("GET /api/matches/waiting", that.requireAuth(that.ListWaiting))
	mux.Handle("GET /api/matches/{id}", that.requireAuth(that.GetMatch))
	mux.Handle("GET /api/codes/{code}", that.requireAuth(that.GetMatchByCode))
	mux.Handle("POST /api/matches/{id}/join", that.requireAuth(that.JoinMatch))
	mux.Handle("POST /api/matches/{id}/moves", that.requireAuth(that.MoveMatch))
	mux.Handle("POST /api/matches/{id}/resign", that.requireAuth(that.ResignMatch))
	mux.Handle("GET /api/matches/{id}/board.png", that.requireAuth(that.BoardImage))

	return mux
}
