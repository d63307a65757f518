package apperror

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("action is not valid for the current match status")
	ErrNotAParticipant    = errors.New("not a participant of the match")
	ErrAlreadyParticipant = errors.New("already a participant of the match")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrIllegalMove        = errors.New("illegal move")

	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("concurrent modification")
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidState       = "INVALID_STATE"
	CodeNotAParticipant    = "NOT_A_PARTICIPANT"
	CodeAlreadyParticipant = "ALREADY_PARTICIPANT"
	CodeNotYourTurn        = "NOT_YOUR_TURN"
	CodeIllegalMove        = "ILLEGAL_MOVE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, CodeNotFound},
	{ErrInvalidState, CodeInvalidState},
	{ErrNotAParticipant, CodeNotAParticipant},
	{ErrAlreadyParticipant, CodeAlreadyParticipant},
	{ErrNotYourTurn, CodeNotYourTurn},
	{ErrIllegalMove, CodeIllegalMove},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrBadRequest, CodeBadRequest},
	{ErrConflict, CodeConflict},
}

// Code returns the stable machine code of the first known error in err's chain.
func Code(err error) string {
	for _, known := range codes {
		if errors.Is(err, known.err) {
			return known.code
		}
	}

	return CodeInternal
}
