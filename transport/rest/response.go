package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[string]int{
	apperror.CodeNotFound:           http.StatusNotFound,
	apperror.CodeInvalidState:       http.StatusConflict,
	apperror.CodeNotAParticipant:    http.StatusForbidden,
	apperror.CodeAlreadyParticipant: http.StatusConflict,
	apperror.CodeNotYourTurn:        http.StatusConflict,
	apperror.CodeIllegalMove:        http.StatusUnprocessableEntity,
	apperror.CodeUnauthorized:       http.StatusUnauthorized,
	apperror.CodeBadRequest:         http.StatusBadRequest,
	apperror.CodeConflict:           http.StatusConflict,
}

// StatusOf maps an apperror code to its HTTP status.
func StatusOf(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}

func (that *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", zap.Error(err))
	}
}

func (that *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperror.Code(err)
	status := StatusOf(code)

	log := that.logger.With(
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("code", code),
	)

	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Error(err))
	}

	that.writeJSON(w, status, errorResponse{
		Code:    code,
		Message: that.messages.ErrorMessage(code, nil),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", apperror.ErrBadRequest, err)
	}

	return nil
}
