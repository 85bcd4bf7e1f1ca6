package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/lifeboard-backend/internal/domain"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

const (
	CodeInvalidInput   = "invalid_input"
	CodeInvalidBoardID = "invalid_board_id"
	CodeBoardNotFound  = "board_not_found"
	CodeNotStabilized  = "not_stabilized"
	CodeInternal       = "internal"
)

// NotStabilizedMessage is the client-facing text for an exhausted
// stabilisation budget.
const NotStabilizedMessage = "Unable to stabilize board after max steps"

// FromDomain maps service errors onto transport errors. An *Error passes
// through unchanged; anything unrecognised becomes a 500 whose message
// does not leak internals.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return New(http.StatusBadRequest, CodeInvalidInput, err)
	case errors.Is(err, domain.ErrNotFound):
		return New(http.StatusNotFound, CodeBoardNotFound, domain.ErrNotFound)
	case errors.Is(err, domain.ErrNotStabilized):
		return New(http.StatusNotFound, CodeNotStabilized, errors.New(NotStabilizedMessage))
	default:
		return New(http.StatusInternalServerError, CodeInternal, errors.New("internal error"))
	}
}
