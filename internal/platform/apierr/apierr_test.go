package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/yungbote/lifeboard-backend/internal/domain"
)

func TestFromDomain(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"invalid", fmt.Errorf("%w: state must be a non-empty 2D list", domain.ErrInvalidInput), http.StatusBadRequest, CodeInvalidInput, "invalid input: state must be a non-empty 2D list"},
		{"not found", fmt.Errorf("get: %w", domain.ErrNotFound), http.StatusNotFound, CodeBoardNotFound, "board not found"},
		{"not stabilized", &domain.NotStabilizedError{MaxIterations: 1000}, http.StatusNotFound, CodeNotStabilized, NotStabilizedMessage},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, CodeInternal, "internal error"},
		{"passthrough", New(http.StatusBadRequest, CodeInvalidBoardID, errors.New("bad id")), http.StatusBadRequest, CodeInvalidBoardID, "bad id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromDomain(tc.err)
			if got.Status != tc.status || got.Code != tc.code {
				t.Fatalf("mapping: want=%d/%s got=%d/%s", tc.status, tc.code, got.Status, got.Code)
			}
			if got.Error() != tc.msg {
				t.Fatalf("message: want=%q got=%q", tc.msg, got.Error())
			}
		})
	}
	if FromDomain(nil) != nil {
		t.Fatalf("nil error should map to nil")
	}
}
