package inmem

import (
	"context"
	"sort"

	"github.com/shieldhq/shield/core/catalog"
)

type catalogRepository struct {
	db *catalogTable
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db.catalog}
}

func (repo *catalogRepository) CreateAxis(_ context.Context, axis catalog.Axis) (catalog.Axis, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.axisSeq++
	axis.ID = repo.db.axisSeq
	repo.db.axes[axis.ID] = &axis
	return axis, nil
}

func (repo *catalogRepository) GetAxis(_ context.Context, id int) (catalog.Axis, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if axis, ok := repo.db.axes[id]; ok {
		return *axis, nil
	}
	return catalog.Axis{}, catalog.ErrAxisNotFound
}

func (repo *catalogRepository) QueryAxes(_ context.Context, path catalog.Path) ([]catalog.Axis, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	axes := make([]catalog.Axis, 0)
	for _, axis := range repo.db.axes {
		if axis.Path == path {
			axes = append(axes, *axis)
		}
	}
	sort.Slice(axes, func(i, j int) bool { return axes[i].ID < axes[j].ID })
	return axes, nil
}

func (repo *catalogRepository) UpdateAxis(_ context.Context, axis catalog.Axis) (catalog.Axis, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.axes[axis.ID]; !ok {
		return catalog.Axis{}, catalog.ErrAxisNotFound
	}
	repo.db.axes[axis.ID] = &axis
	return axis, nil
}

func (repo *catalogRepository) CreateQuestion(_ context.Context, q catalog.Question) (catalog.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.qSeq++
	q.ID = repo.db.qSeq
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *catalogRepository) GetQuestion(_ context.Context, id int) (catalog.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return catalog.Question{}, catalog.ErrQuestionNotFound
}

func (repo *catalogRepository) QueryQuestions(_ context.Context, path catalog.Path) ([]catalog.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	questions := make([]catalog.Question, 0)
	for _, q := range repo.db.questions {
		if q.Path == path {
			questions = append(questions, *q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Position != questions[j].Position {
			return questions[i].Position < questions[j].Position
		}
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

func (repo *catalogRepository) UpdateQuestion(_ context.Context, q catalog.Question) (catalog.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.questions[q.ID]; !ok {
		return catalog.Question{}, catalog.ErrQuestionNotFound
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *catalogRepository) DeleteQuestionsByID(_ context.Context, ids ...int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.questions, id)
	}
	return nil
}
