package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/damas"
	"github.com/rocketscienceinc/damas-backend/internal/render"
)

type createMatchRequest struct {
	TimeLimitSeconds int `json:"time_limit_seconds"`
}

type moveRequest struct {
	FromRow *int `json:"from_row"`
	FromCol *int `json:"from_col"`
	ToRow   *int `json:"to_row"`
	ToCol   *int `json:"to_col"`
}

func (that moveRequest) cells() (damas.Cell, damas.Cell, error) {
	if that.FromRow == nil || that.FromCol == nil || that.ToRow == nil || that.ToCol == nil {
		return damas.Cell{}, damas.Cell{}, fmt.Errorf("%w: from_row, from_col, to_row and to_col are required", apperror.ErrBadRequest)
	}

	return damas.Cell{Row: *that.FromRow, Col: *that.FromCol}, damas.Cell{Row: *that.ToRow, Col: *that.ToCol}, nil
}

func (that *Handlers) CreateMatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	var req createMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		that.writeError(w, r, err)
		return
	}

	snapshot, err := that.matches.Create(r.Context(), userID, req.TimeLimitSeconds)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusCreated, snapshot)
}

func (that *Handlers) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	snapshots, err := that.matches.ListMine(r.Context(), userID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, snapshots)
}

func (that *Handlers) ListWaiting(w http.ResponseWriter, r *http.Request) {
	snapshots, err := that.matches.ListWaiting(r.Context())
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, snapshots)
}

func (that *Handlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.matches.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, snapshot)
}

func (that *Handlers) GetMatchByCode(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.matches.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, snapshot)
}

func (that *Handlers) JoinMatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	snapshot, err := that.matches.Join(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, snapshot)
}

func (that *Handlers) MoveMatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		that.writeError(w, r, err)
		return
	}

	from, to, err := req.cells()
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	snapshot, err := that.matches.Move(r.Context(), r.PathValue("id"), userID, from, to)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, snapshot)
}

func (that *Handlers) ResignMatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	snapshot, err := that.matches.Resign(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, snapshot)
}

func (that *Handlers) BoardImage(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			that.writeError(w, r, fmt.Errorf("%w: size must be an integer", apperror.ErrBadRequest))
			return
		}
		size = parsed
	}

	snapshot, err := that.matches.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	board, err := snapshot.CurrentBoard()
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	image, err := render.BoardPNG(board, size)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err = w.Write(image); err != nil {
		that.logger.Error("failed to write board image", zap.Error(err))
	}
}
