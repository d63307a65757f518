package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"not found", ErrNotFound, CodeNotFound},
		{"wrapped invalid state", fmt.Errorf("failed to join: %w", ErrInvalidState), CodeInvalidState},
		{"not a participant", ErrNotAParticipant, CodeNotAParticipant},
		{"already participant", ErrAlreadyParticipant, CodeAlreadyParticipant},
		{"not your turn twice wrapped", fmt.Errorf("a: %w", fmt.Errorf("b: %w", ErrNotYourTurn)), CodeNotYourTurn},
		{"illegal move", ErrIllegalMove, CodeIllegalMove},
		{"unauthorized", ErrUnauthorized, CodeUnauthorized},
		{"bad request", ErrBadRequest, CodeBadRequest},
		{"conflict", ErrConflict, CodeConflict},
		{"unknown", errors.New("redis down"), CodeInternal},
		{"nil", nil, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}
