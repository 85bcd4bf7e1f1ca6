package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/lifeboard-backend/internal/domain"
	"github.com/yungbote/lifeboard-backend/internal/life"
	"github.com/yungbote/lifeboard-backend/internal/observability"
	"github.com/yungbote/lifeboard-backend/internal/platform/ctxutil"
	"github.com/yungbote/lifeboard-backend/internal/platform/logger"
	"github.com/yungbote/lifeboard-backend/internal/render"
)

// BoardStore is the registry surface the service needs.
type BoardStore interface {
	Create(ctx context.Context, state domain.Grid) (domain.Board, error)
	Get(id uuid.UUID) (domain.Board, bool)
	AdvanceOne(ctx context.Context, id uuid.UUID) (domain.Board, bool)
	AdvanceN(id uuid.UUID, steps int) (domain.Grid, bool, error)
	Stabilize(id uuid.UUID, maxIterations int) (domain.Grid, int, bool, error)
	List() []domain.Board
}

type Limits struct {
	DefaultMaxIterations int
	MaxIterationsLimit   int
	// MaxSteps bounds projections; 0 means unbounded.
	MaxSteps        int
	RenderMaxPixels int
}

func DefaultLimits() Limits {
	return Limits{
		DefaultMaxIterations: life.DefaultMaxIterations,
		MaxIterationsLimit:   100000,
		RenderMaxPixels:      render.DefaultMaxSide,
	}
}

type FinalState struct {
	State      domain.Grid `json:"state"`
	Iterations int         `json:"iterations"`
}

type BoardService interface {
	CreateBoard(ctx context.Context, state domain.Grid) (domain.Board, error)
	GetBoard(ctx context.Context, id uuid.UUID) (domain.Board, error)
	// GetNextState advances the stored board by one generation.
	GetNextState(ctx context.Context, id uuid.UUID) (domain.Board, error)
	GetStateAfterSteps(ctx context.Context, id uuid.UUID, steps int) (domain.Grid, error)
	GetFinalState(ctx context.Context, id uuid.UUID, maxIterations int) (FinalState, error)
	ListBoards(ctx context.Context) ([]domain.BoardSummary, error)
	RenderBoard(ctx context.Context, id uuid.UUID, steps, cellSize int) ([]byte, error)
}

type boardService struct {
	log    *logger.Logger
	boards BoardStore
	limits Limits
}

func NewBoardService(log *logger.Logger, boards BoardStore, limits Limits) BoardService {
	def := DefaultLimits()
	if limits.DefaultMaxIterations <= 0 {
		limits.DefaultMaxIterations = def.DefaultMaxIterations
	}
	if limits.MaxIterationsLimit < limits.DefaultMaxIterations {
		limits.MaxIterationsLimit = limits.DefaultMaxIterations
	}
	if limits.RenderMaxPixels <= 0 {
		limits.RenderMaxPixels = def.RenderMaxPixels
	}
	return &boardService{
		log:    log.With("service", "BoardService"),
		boards: boards,
		limits: limits,
	}
}

func (s *boardService) start(ctx context.Context, op string, id uuid.UUID) (context.Context, trace.Span) {
	ctx, span := observability.Tracer().Start(ctx, "BoardService."+op)
	if id != uuid.Nil {
		span.SetAttributes(attribute.String("board.id", id.String()))
	}
	return ctx, span
}

// finish records err on the span. Expected outcomes (bad input, unknown
// board, no fixed point) are not span errors.
func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrInvalidInput) &&
		!errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrNotStabilized) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *boardService) CreateBoard(ctx context.Context, state domain.Grid) (b domain.Board, err error) {
	ctx, span := s.start(ctx, "CreateBoard", uuid.Nil)
	defer func() { finish(span, err) }()

	b, err = s.boards.Create(ctx, state)
	if err != nil {
		return domain.Board{}, err
	}
	span.SetAttributes(
		attribute.String("board.id", b.ID.String()),
		attribute.Int("board.rows", b.State.Rows()),
		attribute.Int("board.cols", b.State.Cols()),
	)
	s.log.Info("board created", append([]interface{}{
		"board_id", b.ID,
		"rows", b.State.Rows(),
		"cols", b.State.Cols(),
	}, ctxutil.LogFields(ctx)...)...)
	return b, nil
}

func (s *boardService) GetBoard(ctx context.Context, id uuid.UUID) (b domain.Board, err error) {
	_, span := s.start(ctx, "GetBoard", id)
	defer func() { finish(span, err) }()

	b, ok := s.boards.Get(id)
	if !ok {
		return domain.Board{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *boardService) GetNextState(ctx context.Context, id uuid.UUID) (b domain.Board, err error) {
	ctx, span := s.start(ctx, "GetNextState", id)
	defer func() { finish(span, err) }()

	b, ok := s.boards.AdvanceOne(ctx, id)
	if !ok {
		return domain.Board{}, domain.ErrNotFound
	}
	span.SetAttributes(attribute.Int64("board.generation", int64(b.Generation)))
	return b, nil
}

func (s *boardService) GetStateAfterSteps(ctx context.Context, id uuid.UUID, steps int) (g domain.Grid, err error) {
	_, span := s.start(ctx, "GetStateAfterSteps", id)
	span.SetAttributes(attribute.Int("steps", steps))
	defer func() { finish(span, err) }()

	if err := s.checkSteps(steps); err != nil {
		return nil, err
	}
	g, ok, err := s.boards.AdvanceN(id, steps)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *boardService) GetFinalState(ctx context.Context, id uuid.UUID, maxIterations int) (out FinalState, err error) {
	_, span := s.start(ctx, "GetFinalState", id)
	defer func() { finish(span, err) }()

	budget, err := s.iterationBudget(maxIterations)
	if err != nil {
		return FinalState{}, err
	}
	span.SetAttributes(attribute.Int("max_iterations", budget))

	g, iterations, ok, err := s.boards.Stabilize(id, budget)
	if !ok {
		return FinalState{}, domain.ErrNotFound
	}
	span.SetAttributes(attribute.Int("iterations", iterations))
	if err != nil {
		if errors.Is(err, domain.ErrNotStabilized) {
			s.log.Debug("board did not stabilize", append([]interface{}{
				"board_id", id,
				"max_iterations", budget,
			}, ctxutil.LogFields(ctx)...)...)
		}
		return FinalState{}, err
	}
	return FinalState{State: g, Iterations: iterations}, nil
}

func (s *boardService) ListBoards(ctx context.Context) ([]domain.BoardSummary, error) {
	_, span := s.start(ctx, "ListBoards", uuid.Nil)
	defer span.End()

	boards := s.boards.List()
	out := make([]domain.BoardSummary, 0, len(boards))
	for _, b := range boards {
		out = append(out, b.Summary())
	}
	span.SetAttributes(attribute.Int("boards", len(out)))
	return out, nil
}

func (s *boardService) RenderBoard(ctx context.Context, id uuid.UUID, steps, cellSize int) (img []byte, err error) {
	_, span := s.start(ctx, "RenderBoard", id)
	defer func() { finish(span, err) }()

	if err := s.checkSteps(steps); err != nil {
		return nil, err
	}
	if cellSize < 0 {
		return nil, fmt.Errorf("%w: cell size must not be negative", domain.ErrInvalidInput)
	}
	g, ok, err := s.boards.AdvanceN(id, steps)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return render.PNG(g, cellSize, s.limits.RenderMaxPixels)
}

func (s *boardService) checkSteps(steps int) error {
	if steps < 0 {
		return fmt.Errorf("%w: steps must not be negative", domain.ErrInvalidInput)
	}
	if s.limits.MaxSteps > 0 && steps > s.limits.MaxSteps {
		return fmt.Errorf("%w: steps must not exceed %d", domain.ErrInvalidInput, s.limits.MaxSteps)
	}
	return nil
}

func (s *boardService) iterationBudget(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: max_iterations must not be negative", domain.ErrInvalidInput)
	case requested == 0:
		return s.limits.DefaultMaxIterations, nil
	case requested > s.limits.MaxIterationsLimit:
		return 0, fmt.Errorf("%w: max_iterations must not exceed %d", domain.ErrInvalidInput, s.limits.MaxIterationsLimit)
	default:
		return requested, nil
	}
}
