package rest

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
	"github.com/rocketscienceinc/damas-backend/internal/msgcat"
	"github.com/rocketscienceinc/damas-backend/internal/notifier"
	"github.com/rocketscienceinc/damas-backend/internal/repository"
	"github.com/rocketscienceinc/damas-backend/internal/service"
	"github.com/rocketscienceinc/damas-backend/internal/usecase"
	"github.com/rocketscienceinc/damas-backend/testing/suite"
)

type api struct {
	t       *testing.T
	handler http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()

	ctx, st := suite.New(t)

	users := repository.NewUserRepository(suite.NewSQLStorage(ctx, t))
	matches := repository.NewMatchRepository(st.Storage)

	auth, err := service.NewAuthService("test-secret", time.Hour)
	require.NoError(t, err)

	messages, err := msgcat.New("")
	require.NoError(t, err)

	manager := usecase.NewMatchManager(st.Logger, matches, users, notifier.Fanout{}, usecase.MatchOptions{})
	handlers := NewHandlers(st.Logger, manager, usecase.NewUserUseCase(users), auth, messages)

	return &api{t: t, handler: handlers.Routes()}
}

func (that *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	that.t.Helper()

	var reader *bytes.Reader
	switch payload := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(payload))
	default:
		raw, err := json.Marshal(payload)
		require.NoError(that.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	that.handler.ServeHTTP(rec, req)

	return rec
}

func (that *api) register(username string) (string, entity.User) {
	that.t.Helper()

	rec := that.do(http.MethodPost, "/api/auth/register", "", map[string]string{"username": username})
	require.Equal(that.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp tokenResponse
	require.NoError(that.t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp.Token, resp.User
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return out
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	assert.Equal(t, status, rec.Code, rec.Body.String())

	resp := decode[errorResponse](t, rec)
	assert.Equal(t, code, resp.Code)
	assert.NotEmpty(t, resp.Message)
}

func move(fromRow, fromCol, toRow, toCol int) map[string]int {
	return map[string]int{"from_row": fromRow, "from_col": fromCol, "to_row": toRow, "to_col": toCol}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{apperror.CodeNotFound, http.StatusNotFound},
		{apperror.CodeInvalidState, http.StatusConflict},
		{apperror.CodeNotAParticipant, http.StatusForbidden},
		{apperror.CodeAlreadyParticipant, http.StatusConflict},
		{apperror.CodeNotYourTurn, http.StatusConflict},
		{apperror.CodeIllegalMove, http.StatusUnprocessableEntity},
		{apperror.CodeUnauthorized, http.StatusUnauthorized},
		{apperror.CodeBadRequest, http.StatusBadRequest},
		{apperror.CodeConflict, http.StatusConflict},
		{apperror.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusOf(tt.code))
		})
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())

	rec = a.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	t.Run("Register returns a usable token", func(t *testing.T) {
		a := newAPI(t)

		token, user := a.register("alice")
		assert.NotEmpty(t, token)
		assert.Equal(t, "alice", user.Username)

		rec := a.do(http.MethodGet, "/api/users/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.ID, decode[entity.User](t, rec).ID)
	})

	t.Run("Duplicate username conflicts", func(t *testing.T) {
		a := newAPI(t)
		a.register("alice")

		rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"username": "alice"})
		assertError(t, rec, http.StatusConflict, apperror.CodeConflict)
	})

	t.Run("Invalid username is a bad request", func(t *testing.T) {
		a := newAPI(t)

		rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"username": "a b"})
		assertError(t, rec, http.StatusBadRequest, apperror.CodeBadRequest)
	})

	t.Run("Malformed body is a bad request", func(t *testing.T) {
		a := newAPI(t)

		rec := a.do(http.MethodPost, "/api/auth/register", "", `{"username":`)
		assertError(t, rec, http.StatusBadRequest, apperror.CodeBadRequest)
	})

	t.Run("Login issues a token for a known user", func(t *testing.T) {
		a := newAPI(t)
		_, user := a.register("alice")

		rec := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice"})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[tokenResponse](t, rec)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, user.ID, resp.User.ID)
	})

	t.Run("Login of an unknown user is not found", func(t *testing.T) {
		a := newAPI(t)

		rec := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ghost"})
		assertError(t, rec, http.StatusNotFound, apperror.CodeNotFound)
	})

	t.Run("Protected routes need a valid bearer token", func(t *testing.T) {
		a := newAPI(t)

		assertError(t, a.do(http.MethodGet, "/api/users/me", "", nil), http.StatusUnauthorized, apperror.CodeUnauthorized)
		assertError(t, a.do(http.MethodGet, "/api/matches", "garbage", nil), http.StatusUnauthorized, apperror.CodeUnauthorized)
	})
}

func TestMatchEndpoints(t *testing.T) {
	t.Run("A full match over the API", func(t *testing.T) {
		a := newAPI(t)
		aliceToken, alice := a.register("alice")
		bobToken, bob := a.register("bob")
		carolToken, _ := a.register("carol")

		// Given: alice opens a match
		rec := a.do(http.MethodPost, "/api/matches", aliceToken, map[string]int{"time_limit_seconds": 300})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		created := decode[entity.MatchSnapshot](t, rec)
		assert.Equal(t, entity.StatusWaiting, created.Status)
		assert.Equal(t, alice.ID, created.White.ID)
		require.NotNil(t, created.Clock)
		assert.Equal(t, 300, created.Clock.White)

		// When: bob finds it by code and among the waiting ones
		rec = a.do(http.MethodGet, "/api/codes/"+strings.ToLower(created.Code), bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, created.ID, decode[entity.MatchSnapshot](t, rec).ID)

		rec = a.do(http.MethodGet, "/api/matches/waiting", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]entity.MatchSnapshot](t, rec), 1)

		// And: joins it
		rec = a.do(http.MethodPost, "/api/matches/"+created.ID+"/join", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		joined := decode[entity.MatchSnapshot](t, rec)
		assert.Equal(t, entity.StatusInProgress, joined.Status)
		require.NotNil(t, joined.Black)
		assert.Equal(t, bob.ID, joined.Black.ID)

		// Then: every rejection maps to its own status
		assertError(t, a.do(http.MethodPost, "/api/matches/"+created.ID+"/join", aliceToken, nil),
			http.StatusConflict, apperror.CodeInvalidState)
		assertError(t, a.do(http.MethodPost, "/api/matches/"+created.ID+"/moves", bobToken, move(2, 1, 3, 0)),
			http.StatusConflict, apperror.CodeNotYourTurn)
		assertError(t, a.do(http.MethodPost, "/api/matches/"+created.ID+"/moves", aliceToken, move(5, 0, 3, 2)),
			http.StatusUnprocessableEntity, apperror.CodeIllegalMove)
		assertError(t, a.do(http.MethodPost, "/api/matches/"+created.ID+"/moves", aliceToken, map[string]int{"from_row": 5}),
			http.StatusBadRequest, apperror.CodeBadRequest)
		assertError(t, a.do(http.MethodPost, "/api/matches/"+created.ID+"/resign", carolToken, nil),
			http.StatusForbidden, apperror.CodeNotAParticipant)

		// When: alice makes a legal move
		rec = a.do(http.MethodPost, "/api/matches/"+created.ID+"/moves", aliceToken, move(5, 2, 4, 3))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		moved := decode[entity.MatchSnapshot](t, rec)
		assert.Equal(t, "5,2:4,3;", moved.History)
		assert.Equal(t, 1, moved.Board[4][3])

		// And: bob resigns
		rec = a.do(http.MethodPost, "/api/matches/"+created.ID+"/resign", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resigned := decode[entity.MatchSnapshot](t, rec)
		assert.Equal(t, entity.StatusAbandoned, resigned.Status)
		require.NotNil(t, resigned.Winner)
		assert.Equal(t, alice.ID, resigned.Winner.ID)

		// Then: alice's stats reflect the win
		rec = a.do(http.MethodGet, "/api/users/me", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		me := decode[entity.User](t, rec)
		assert.Equal(t, 1, me.Played)
		assert.Equal(t, 1, me.Won)
		assert.Equal(t, 10, me.Score)

		// And: both players list the match as theirs
		rec = a.do(http.MethodGet, "/api/matches", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		mine := decode[[]entity.MatchSnapshot](t, rec)
		require.Len(t, mine, 1)
		assert.Equal(t, created.ID, mine[0].ID)
	})

	t.Run("Unknown match is not found", func(t *testing.T) {
		a := newAPI(t)
		token, _ := a.register("alice")

		assertError(t, a.do(http.MethodGet, "/api/matches/missing", token, nil), http.StatusNotFound, apperror.CodeNotFound)
		assertError(t, a.do(http.MethodGet, "/api/codes/NOPE", token, nil), http.StatusNotFound, apperror.CodeNotFound)
	})

	t.Run("Negative time limit is a bad request", func(t *testing.T) {
		a := newAPI(t)
		token, _ := a.register("alice")

		rec := a.do(http.MethodPost, "/api/matches", token, map[string]int{"time_limit_seconds": -1})
		assertError(t, rec, http.StatusBadRequest, apperror.CodeBadRequest)
	})

	t.Run("Board image", func(t *testing.T) {
		a := newAPI(t)
		token, _ := a.register("alice")

		rec := a.do(http.MethodPost, "/api/matches", token, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		created := decode[entity.MatchSnapshot](t, rec)

		rec = a.do(http.MethodGet, "/api/matches/"+created.ID+"/board.png?size=200", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

		img, err := png.Decode(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, 200, img.Bounds().Dx())

		assertError(t, a.do(http.MethodGet, "/api/matches/"+created.ID+"/board.png?size=big", token, nil),
			http.StatusBadRequest, apperror.CodeBadRequest)
	})
}
