package websocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/damas"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
	"github.com/rocketscienceinc/damas-backend/pkg/handlers"
)

const (
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

type matchUseCase interface {
	Join(ctx context.Context, matchID, joinerID string) (entity.MatchSnapshot, error)
	Move(ctx context.Context, matchID, moverID string, from, to damas.Cell) (entity.MatchSnapshot, error)
	Resign(ctx context.Context, matchID, resignerID string) (entity.MatchSnapshot, error)
	GetByID(ctx context.Context, matchID string) (entity.MatchSnapshot, error)
}

type tokenParser interface {
	ParseToken(token string) (string, error)
}

type subscriber interface {
	Subscribe(ctx context.Context, matchID string) (<-chan entity.MatchSnapshot, error)
}

type messageCatalog interface {
	ErrorMessage(code string, data any) string
}

// session is one client connection bound to a match.
type session struct {
	conn    *websocket.Conn
	matchID string
	userID  string
}

type handlerFunc func(ctx context.Context, sess *session, msg *Message) (entity.MatchSnapshot, error)

type Server struct {
	logger *zap.Logger

	matches    matchUseCase
	auth       tokenParser
	subscriber subscriber
	messages   messageCatalog

	// OriginPatterns are the extra origins allowed to open a connection.
	OriginPatterns []string

	handlers map[string]handlerFunc
}

func New(logger *zap.Logger, matches matchUseCase, auth tokenParser, subscriber subscriber, messages messageCatalog) *Server {
	server := &Server{
		logger:     logger.With(zap.String("component", "websocket")),
		matches:    matches,
		auth:       auth,
		subscriber: subscriber,
		messages:   messages,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[ActionJoin] = server.handleJoin
	server.handlers[ActionMove] = server.handleMove
	server.handlers[ActionResign] = server.handleResign

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", handlers.PingHandler)
	mux.HandleFunc("GET /ws/matches/{id}", that.ServeMatch)

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped with error: %w", err)
	}

	return nil
}

// ServeMatch authenticates the request, upgrades it and streams the match until either side leaves.
func (that *Server) ServeMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	log := that.logger.With(zap.String("method", "ServeMatch"), zap.String("match_id", matchID))

	userID, err := that.auth.ParseToken(tokenFrom(r))
	if err != nil {
		http.Error(w, that.messages.ErrorMessage(apperror.CodeUnauthorized, nil), http.StatusUnauthorized)
		return
	}

	snapshot, err := that.matches.GetByID(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.Error(w, that.messages.ErrorMessage(apperror.CodeNotFound, nil), http.StatusNotFound)
			return
		}

		log.Error("failed to get match", zap.Error(err))
		http.Error(w, that.messages.ErrorMessage(apperror.CodeInternal, nil), http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: that.OriginPatterns,
	})
	if err != nil {
		log.Warn("failed to accept websocket", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &session{conn: conn, matchID: matchID, userID: userID}
	log = log.With(zap.String("user_id", userID))

	// subscribe before the initial snapshot so that no transition slips in between
	updates, err := that.subscriber.Subscribe(ctx, matchID)
	if err != nil {
		log.Error("failed to subscribe", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "subscription failed")
		return
	}

	if err = that.send(ctx, sess, ActionState, snapshot); err != nil {
		log.Warn("failed to send initial snapshot", zap.Error(err))
		return
	}

	log.Info("WebSocket connection established")

	go that.forward(ctx, sess, updates)

	if err = that.handleMessages(ctx, sess); err != nil {
		log.Info("WebSocket connection closed", zap.Error(err))
		return
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// forward pushes every published snapshot of the session's match to the client.
func (that *Server) forward(ctx context.Context, sess *session, updates <-chan entity.MatchSnapshot) {
	log := that.logger.With(zap.String("method", "forward"), zap.String("match_id", sess.matchID))

	for snapshot := range updates {
		if err := that.send(ctx, sess, ActionState, snapshot); err != nil {
			log.Debug("failed to push snapshot", zap.Error(err))
			return
		}
	}
}

// handleMessages - processes messages from the client until it disconnects.
func (that *Server) handleMessages(ctx context.Context, sess *session) error {
	log := that.logger.With(zap.String("method", "handleMessages"), zap.String("match_id", sess.matchID))

	for {
		var message Message
		if err := wsjson.Read(ctx, sess.conn, &message); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return nil
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", zap.String("action", message.Action))

			err := fmt.Errorf("%w: unknown action %q", apperror.ErrBadRequest, message.Action)
			if err = that.sendError(ctx, sess, ActionError, err); err != nil {
				return err
			}

			continue
		}

		snapshot, err := handler(ctx, sess, &message)
		if err != nil {
			log.Debug("action rejected", zap.String("action", message.Action), zap.Error(err))

			if err = that.sendError(ctx, sess, message.Action, err); err != nil {
				return err
			}

			continue
		}

		if err = that.send(ctx, sess, message.Action, snapshot); err != nil {
			return err
		}
	}
}

func (that *Server) send(ctx context.Context, sess *session, action string, payload any) error {
	message, err := newMessage(action, payload)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err = wsjson.Write(writeCtx, sess.conn, message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *Server) sendError(ctx context.Context, sess *session, action string, err error) error {
	code := apperror.Code(err)

	return that.send(ctx, sess, action, ErrorPayload{
		Code:    code,
		Message: that.messages.ErrorMessage(code, nil),
	})
}

// tokenFrom reads the token from the query string, falling back to the Authorization header.
func tokenFrom(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}

	return ""
}
