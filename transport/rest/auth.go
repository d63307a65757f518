package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
)

type ctxKey struct{}

type credentialsRequest struct {
	Username string `json:"username"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  entity.User `json:"user"`
}

// UserIDFrom returns the authenticated user id stored by requireAuth.
func UserIDFrom(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ctxKey{}).(string)
	return userID, ok && userID != ""
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: missing bearer token", apperror.ErrUnauthorized)
	}

	return strings.TrimSpace(token), nil
}

func (that *Handlers) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			that.writeError(w, r, err)
			return
		}

		userID, err := that.auth.ParseToken(token)
		if err != nil {
			that.writeError(w, r, err)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func (that *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		that.writeError(w, r, err)
		return
	}

	user, err := that.users.Register(r.Context(), req.Username)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeToken(w, r, http.StatusCreated, user)
}

func (that *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		that.writeError(w, r, err)
		return
	}

	user, err := that.users.Login(r.Context(), req.Username)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeToken(w, r, http.StatusOK, user)
}

func (that *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	user, err := that.users.GetByID(r.Context(), userID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, user)
}

func (that *Handlers) writeToken(w http.ResponseWriter, r *http.Request, status int, user entity.User) {
	token, err := that.auth.GenerateToken(user.ID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, status, tokenResponse{Token: token, User: user})
}
