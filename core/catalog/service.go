package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	// errors
	ErrQuestionNotFound = errors.New("question not found")
	ErrAxisNotFound     = errors.New("axis not found")
)

type (
	Repository interface {
		CreateAxis(ctx context.Context, axis Axis) (Axis, error)
		GetAxis(ctx context.Context, id int) (Axis, error)
		// QueryAxes returns the axes of a path ordered by ID.
		QueryAxes(ctx context.Context, path Path) ([]Axis, error)
		UpdateAxis(ctx context.Context, axis Axis) (Axis, error)

		CreateQuestion(ctx context.Context, question Question) (Question, error)
		GetQuestion(ctx context.Context, id int) (Question, error)
		// QueryQuestions returns the questions of a path ordered by position.
		QueryQuestions(ctx context.Context, path Path) ([]Question, error)
		UpdateQuestion(ctx context.Context, question Question) (Question, error)
		DeleteQuestionsByID(ctx context.Context, ids ...int) error
	}

	// Service owns the question catalog. It carries a monotonically increasing
	// revision, bumped on every mutation, so that derived caches (the scoring
	// engine's max-score cache) can invalidate.
	Service struct {
		repo     Repository
		revision int64
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, revision: 1}
}

// Revision returns the current catalog revision.
func (svc *Service) Revision() int64 {
	return atomic.LoadInt64(&svc.revision)
}

func (svc *Service) bump() {
	atomic.AddInt64(&svc.revision, 1)
}

func (svc *Service) CreateAxis(ctx context.Context, na NewAxis) (Axis, error) {
	now := time.Now().UTC()
	axis := Axis{
		Path:      na.Path,
		Name:      na.Name,
		Weight:    na.Weight,
		CreatedAt: now,
		UpdatedAt: now,
	}
	axis, err := svc.repo.CreateAxis(ctx, axis)
	if err != nil {
		return Axis{}, err
	}
	svc.bump()
	return axis, nil
}

func (svc *Service) GetAxis(ctx context.Context, id int) (Axis, error) {
	return svc.repo.GetAxis(ctx, id)
}

func (svc *Service) AxesForPath(ctx context.Context, path Path) ([]Axis, error) {
	return svc.repo.QueryAxes(ctx, path)
}

func (svc *Service) CreateQuestion(ctx context.Context, nq NewQuestion) (Question, error) {
	if nq.Path == PathHR {
		if _, err := svc.repo.GetAxis(ctx, nq.AxisID); err != nil {
			return Question{}, err
		}
	}

	now := time.Now().UTC()
	q := Question{
		Path:               nq.Path,
		AxisID:             nq.AxisID,
		Text:               nq.Text,
		Options:            nq.Options,
		Points:             nq.Points,
		Weight:             nq.Weight,
		AttachmentRequired: nq.AttachmentRequired,
		Position:           nq.Position,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	q, err := svc.repo.CreateQuestion(ctx, q)
	if err != nil {
		return Question{}, err
	}
	svc.bump()
	return q, nil
}

func (svc *Service) GetQuestion(ctx context.Context, id int) (Question, error) {
	return svc.repo.GetQuestion(ctx, id)
}

// QuestionsForPath returns the path's questions in display order.
func (svc *Service) QuestionsForPath(ctx context.Context, path Path) ([]Question, error) {
	return svc.repo.QueryQuestions(ctx, path)
}

func (svc *Service) UpdateQuestion(ctx context.Context, id int, uq UpdateQuestion) (Question, error) {
	orig, err := svc.repo.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}

	q := Question{
		ID:        id,
		Path:      orig.Path,
		AxisID:    orig.AxisID,
		Text:      uq.Text,
		Options:   uq.Options,
		Points:    uq.Points,
		Weight:    uq.Weight,
		CreatedAt: orig.CreatedAt,
		UpdatedAt: time.Now().UTC(),
	}
	if uq.AttachmentRequired != nil {
		q.AttachmentRequired = *uq.AttachmentRequired
	} else {
		q.AttachmentRequired = orig.AttachmentRequired
	}
	if uq.Position != nil {
		q.Position = *uq.Position
	} else {
		q.Position = orig.Position
	}

	q, err = svc.repo.UpdateQuestion(ctx, q)
	if err != nil {
		return Question{}, err
	}
	svc.bump()
	return q, nil
}

func (svc *Service) DeleteQuestions(ctx context.Context, ids ...int) error {
	if err := svc.repo.DeleteQuestionsByID(ctx, ids...); err != nil {
		return err
	}
	svc.bump()
	return nil
}
