package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/shieldhq/shield/core/scoring"
)

type submissionRepository struct {
	db *submissionTable
}

var _ scoring.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db.submission}
}

func (repo *submissionRepository) CreateSubmission(_ context.Context, sub scoring.Submission) (scoring.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) GetSubmission(_ context.Context, id string) (scoring.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return *sub, nil
	}
	return scoring.Submission{}, scoring.ErrNotFound
}

func (repo *submissionRepository) QuerySubmissions(_ context.Context, filter scoring.QueryFilter) ([]scoring.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]scoring.Submission, 0)
	for _, sub := range repo.db.table {
		if filter.OrganizationID != 0 && sub.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Path != "" && sub.Path != filter.Path {
			continue
		}
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SavedAt.Before(subs[j].SavedAt) })
	return subs, nil
}

func (repo *submissionRepository) UpsertAnswer(_ context.Context, submissionID string, answer scoring.Answer) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, ok := repo.db.table[submissionID]
	if !ok {
		return scoring.ErrNotFound
	}
	for i, a := range sub.Answers {
		if a.QuestionID == answer.QuestionID {
			sub.Answers[i] = answer
			sub.SavedAt = time.Now().UTC()
			return nil
		}
	}
	sub.Answers = append(sub.Answers, answer)
	sub.SavedAt = time.Now().UTC()
	return nil
}

func (repo *submissionRepository) UpdateSubmissionStatus(_ context.Context, id string, from, to scoring.Status) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return scoring.ErrNotFound
	}
	if sub.Status != from {
		return scoring.ErrStatusConflict
	}
	sub.Status = to
	if to == scoring.StatusSubmitted {
		sub.SubmittedAt = time.Now().UTC()
	}
	return nil
}

func (repo *submissionRepository) CreateScoreResult(_ context.Context, res scoring.ScoreResult) (scoring.ScoreResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.results[res.ID] = &res
	return res, nil
}

func (repo *submissionRepository) GetScoreResult(_ context.Context, id string) (scoring.ScoreResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if res, ok := repo.db.results[id]; ok {
		return *res, nil
	}
	return scoring.ScoreResult{}, scoring.ErrResultNotFound
}

func (repo *submissionRepository) LatestScoreResult(_ context.Context, submissionID string) (scoring.ScoreResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var latest *scoring.ScoreResult
	for _, res := range repo.db.results {
		if res.SubmissionID != submissionID {
			continue
		}
		if latest == nil || res.ComputedAt.After(latest.ComputedAt) {
			latest = res
		}
	}
	if latest == nil {
		return scoring.ScoreResult{}, scoring.ErrResultNotFound
	}
	return *latest, nil
}
