package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lifeboard-backend/internal/domain"
	"github.com/yungbote/lifeboard-backend/internal/http/response"
	"github.com/yungbote/lifeboard-backend/internal/platform/apierr"
	"github.com/yungbote/lifeboard-backend/internal/services"
)

type BoardHandler struct {
	boards services.BoardService
}

func NewBoardHandler(boards services.BoardService) *BoardHandler {
	return &BoardHandler{boards: boards}
}

type createBoardRequest struct {
	State domain.Grid `json:"state"`
}

type nextStateResponse struct {
	ID         uuid.UUID   `json:"id"`
	Generation uint64      `json:"generation"`
	State      domain.Grid `json:"state"`
}

type stepsResponse struct {
	ID    uuid.UUID   `json:"id"`
	Steps int         `json:"steps"`
	State domain.Grid `json:"state"`
}

type finalStateResponse struct {
	ID         uuid.UUID   `json:"id"`
	Iterations int         `json:"iterations"`
	State      domain.Grid `json:"state"`
}

// POST /api/boards
//
// The body is either a bare grid ([[true,false],...]) or {"state": grid}.
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	grid, err := decodeGrid(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "request_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, err)
		return
	}
	board, err := h.boards.CreateBoard(c.Request.Context(), grid)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, "/api/boards/"+board.ID.String(), board)
}

// GET /api/boards
func (h *BoardHandler) ListBoards(c *gin.Context) {
	boards, err := h.boards.ListBoards(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"boards": boards})
}

// GET /api/boards/:id
func (h *BoardHandler) GetBoard(c *gin.Context) {
	id, ok := boardID(c)
	if !ok {
		return
	}
	board, err := h.boards.GetBoard(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, board)
}

// GET /api/boards/:id/next
func (h *BoardHandler) GetNextState(c *gin.Context) {
	id, ok := boardID(c)
	if !ok {
		return
	}
	board, err := h.boards.GetNextState(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, nextStateResponse{ID: board.ID, Generation: board.Generation, State: board.State})
}

// GET /api/boards/:id/steps/:steps
func (h *BoardHandler) GetStateAfterSteps(c *gin.Context) {
	id, ok := boardID(c)
	if !ok {
		return
	}
	steps, err := strconv.Atoi(c.Param("steps"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, fmt.Errorf("steps must be an integer"))
		return
	}
	state, err := h.boards.GetStateAfterSteps(c.Request.Context(), id, steps)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, stepsResponse{ID: id, Steps: steps, State: state})
}

// GET /api/boards/:id/final?max_iterations=N
func (h *BoardHandler) GetFinalState(c *gin.Context) {
	id, ok := boardID(c)
	if !ok {
		return
	}
	maxIterations, ok := intQuery(c, "max_iterations")
	if !ok {
		return
	}
	final, err := h.boards.GetFinalState(c.Request.Context(), id, maxIterations)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, finalStateResponse{ID: id, Iterations: final.Iterations, State: final.State})
}

// GET /api/boards/:id/image?steps=N&cell=S
func (h *BoardHandler) GetImage(c *gin.Context) {
	id, ok := boardID(c)
	if !ok {
		return
	}
	steps, ok := intQuery(c, "steps")
	if !ok {
		return
	}
	cell, ok := intQuery(c, "cell")
	if !ok {
		return
	}
	img, err := h.boards.RenderBoard(c.Request.Context(), id, steps, cell)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", img)
}

func boardID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidBoardID, err)
		return uuid.Nil, false
	}
	return id, true
}

// intQuery reads an optional integer query parameter; absent means 0.
func intQuery(c *gin.Context, key string) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, fmt.Errorf("%s must be an integer", key))
		return 0, false
	}
	return n, true
}

func decodeGrid(body io.Reader) (domain.Grid, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: request body is required", domain.ErrInvalidInput)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: request body is required", domain.ErrInvalidInput)
	}
	if raw[0] == '{' {
		var req createBoardRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("%w: malformed board JSON: %v", domain.ErrInvalidInput, err)
		}
		return req.State, nil
	}
	var grid domain.Grid
	if err := json.Unmarshal(raw, &grid); err != nil {
		return nil, fmt.Errorf("%w: malformed board JSON: %v", domain.ErrInvalidInput, err)
	}
	return grid, nil
}
