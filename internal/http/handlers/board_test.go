package handlers

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lifeboard-backend/internal/domain"
	"github.com/yungbote/lifeboard-backend/internal/http/response"
	"github.com/yungbote/lifeboard-backend/internal/platform/logger"
	"github.com/yungbote/lifeboard-backend/internal/registry"
	"github.com/yungbote/lifeboard-backend/internal/services"
)

func newBoardRouter(t *testing.T, limits services.Limits) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	h := NewBoardHandler(services.NewBoardService(log, registry.New(log), limits))

	r := gin.New()
	r.POST("/api/boards", h.CreateBoard)
	r.GET("/api/boards", h.ListBoards)
	r.GET("/api/boards/:id", h.GetBoard)
	r.GET("/api/boards/:id/next", h.GetNextState)
	r.GET("/api/boards/:id/steps/:steps", h.GetStateAfterSteps)
	r.GET("/api/boards/:id/final", h.GetFinalState)
	r.GET("/api/boards/:id/image", h.GetImage)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func createBoard(t *testing.T, r http.Handler, body string) domain.Board {
	t.Helper()
	rec := do(r, http.MethodPost, "/api/boards", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var b domain.Board
	decodeBody(t, rec, &b)
	if got := rec.Header().Get("Location"); got != "/api/boards/"+b.ID.String() {
		t.Fatalf("location: got=%q", got)
	}
	return b
}

const blinkerJSON = `[[false,true,false],[false,true,false],[false,true,false]]`

func TestCreateBoardAcceptsBothBodyShapes(t *testing.T) {
	r := newBoardRouter(t, services.DefaultLimits())

	bare := createBoard(t, r, blinkerJSON)
	wrapped := createBoard(t, r, `{"state":`+blinkerJSON+`}`)
	if bare.ID == wrapped.ID {
		t.Fatalf("boards should get distinct ids")
	}
	if !bare.State.Equal(wrapped.State) || bare.State.Rows() != 3 {
		t.Fatalf("state mismatch: bare=%v wrapped=%v", bare.State, wrapped.State)
	}

	rec := do(r, http.MethodGet, "/api/boards/"+bare.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: want=200 got=%d", rec.Code)
	}
	var got domain.Board
	decodeBody(t, rec, &got)
	if got.ID != bare.ID || !got.State.Equal(bare.State) {
		t.Fatalf("get returned a different board: %+v", got)
	}
}

func TestCreateBoardRejectsInvalidBodies(t *testing.T) {
	r := newBoardRouter(t, services.DefaultLimits())
	for _, body := range []string{"", "[]", "[[]]", "null", `{"state":null}`, `{"state":[[true],[true,false]]}`, "[[true,"} {
		rec := do(r, http.MethodPost, "/api/boards", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: want=400 got=%d", body, rec.Code)
		}
		var env response.ErrorEnvelope
		decodeBody(t, rec, &env)
		if env.Error.Code != "invalid_input" {
			t.Fatalf("body %q: code want=invalid_input got=%q", body, env.Error.Code)
		}
	}
	list := do(r, http.MethodGet, "/api/boards", "")
	var out struct {
		Boards []domain.BoardSummary `json:"boards"`
	}
	decodeBody(t, list, &out)
	if len(out.Boards) != 0 {
		t.Fatalf("invalid creates must not store boards: got=%d", len(out.Boards))
	}
}

func TestBoardRoutesMapErrors(t *testing.T) {
	r := newBoardRouter(t, services.Limits{MaxSteps: 100})
	b := createBoard(t, r, blinkerJSON)
	unknown := uuid.New().String()

	cases := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/boards/not-a-uuid", http.StatusBadRequest, "invalid_board_id"},
		{"/api/boards/" + unknown, http.StatusNotFound, "board_not_found"},
		{"/api/boards/" + unknown + "/next", http.StatusNotFound, "board_not_found"},
		{"/api/boards/" + unknown + "/steps/2", http.StatusNotFound, "board_not_found"},
		{"/api/boards/" + b.ID.String() + "/steps/-1", http.StatusBadRequest, "invalid_input"},
		{"/api/boards/" + b.ID.String() + "/steps/101", http.StatusBadRequest, "invalid_input"},
		{"/api/boards/" + b.ID.String() + "/steps/two", http.StatusBadRequest, "invalid_input"},
		{"/api/boards/" + b.ID.String() + "/final", http.StatusNotFound, "not_stabilized"},
		{"/api/boards/" + b.ID.String() + "/final?max_iterations=-4", http.StatusBadRequest, "invalid_input"},
		{"/api/boards/" + b.ID.String() + "/image?cell=big", http.StatusBadRequest, "invalid_input"},
	}
	for _, tc := range cases {
		rec := do(r, http.MethodGet, tc.path, "")
		if rec.Code != tc.status {
			t.Fatalf("%s: status want=%d got=%d body=%s", tc.path, tc.status, rec.Code, rec.Body.String())
		}
		var env response.ErrorEnvelope
		decodeBody(t, rec, &env)
		if env.Error.Code != tc.code {
			t.Fatalf("%s: code want=%q got=%q", tc.path, tc.code, env.Error.Code)
		}
	}

	rec := do(r, http.MethodGet, "/api/boards/"+b.ID.String()+"/final", "")
	var env response.ErrorEnvelope
	decodeBody(t, rec, &env)
	if env.Error.Message != "Unable to stabilize board after max steps" {
		t.Fatalf("not stabilized message: got=%q", env.Error.Message)
	}
}

func TestNextStepsAndFinal(t *testing.T) {
	r := newBoardRouter(t, services.DefaultLimits())
	b := createBoard(t, r, blinkerJSON)
	base := "/api/boards/" + b.ID.String()

	// steps is a projection and leaves the board alone.
	rec := do(r, http.MethodGet, base+"/steps/1", "")
	var steps stepsResponse
	decodeBody(t, rec, &steps)
	horizontal := domain.Grid{{false, false, false}, {true, true, true}, {false, false, false}}
	if rec.Code != http.StatusOK || steps.Steps != 1 || !steps.State.Equal(horizontal) {
		t.Fatalf("steps/1: code=%d body=%s", rec.Code, rec.Body.String())
	}

	for gen := uint64(1); gen <= 2; gen++ {
		rec = do(r, http.MethodGet, base+"/next", "")
		var next nextStateResponse
		decodeBody(t, rec, &next)
		if rec.Code != http.StatusOK || next.Generation != gen {
			t.Fatalf("next #%d: code=%d body=%s", gen, rec.Code, rec.Body.String())
		}
	}
	var got domain.Board
	decodeBody(t, do(r, http.MethodGet, base, ""), &got)
	if got.Generation != 2 || got.State.Rows() != 3 {
		t.Fatalf("stored board after two nexts: %+v", got)
	}

	block := createBoard(t, r, `[[true,true],[true,true]]`)
	rec = do(r, http.MethodGet, "/api/boards/"+block.ID.String()+"/final?max_iterations=10", "")
	var final finalStateResponse
	decodeBody(t, rec, &final)
	if rec.Code != http.StatusOK || final.Iterations != 1 || final.State.Alive() != 4 {
		t.Fatalf("final: code=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestListBoardsAndImage(t *testing.T) {
	r := newBoardRouter(t, services.DefaultLimits())
	b := createBoard(t, r, blinkerJSON)
	createBoard(t, r, `[[true]]`)

	rec := do(r, http.MethodGet, "/api/boards", "")
	var out struct {
		Boards []domain.BoardSummary `json:"boards"`
	}
	decodeBody(t, rec, &out)
	if len(out.Boards) != 2 {
		t.Fatalf("list: want=2 got=%d", len(out.Boards))
	}

	rec = do(r, http.MethodGet, "/api/boards/"+b.ID.String()+"/image?steps=1&cell=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("image: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type: got=%q", ct)
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 15 || img.Bounds().Dy() != 15 {
		t.Fatalf("image bounds: want=15x15 got=%v", img.Bounds())
	}
}
