package scoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/catalog"
)

type (
	Repository interface {
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		// GetSubmission returns the submission with its answers.
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// QuerySubmissions applies AND operation on available QueryFilter fields.
		QuerySubmissions(ctx context.Context, filter QueryFilter) ([]Submission, error)
		// UpsertAnswer saves an answer keyed by (submission, question) and
		// touches the submission's SavedAt.
		UpsertAnswer(ctx context.Context, submissionID string, answer Answer) error
		// UpdateSubmissionStatus transitions a submission's status only if its
		// current status is exactly `from` (compare-and-set); returns
		// ErrStatusConflict otherwise. Sets SubmittedAt when `to` is submitted.
		UpdateSubmissionStatus(ctx context.Context, id string, from, to Status) error

		// CreateScoreResult appends an immutable score result row.
		CreateScoreResult(ctx context.Context, res ScoreResult) (ScoreResult, error)
		GetScoreResult(ctx context.Context, id string) (ScoreResult, error)
		// LatestScoreResult returns the most recently computed result for a submission.
		LatestScoreResult(ctx context.Context, submissionID string) (ScoreResult, error)
	}

	// Service is the certificate scoring engine: it runs submitted answers
	// through the path's strategy, normalizes against the path's max score and
	// resolves the rank.
	Service struct {
		repo    Repository
		catalog *catalog.Service
		logger  core.Logger
		conf    *core.Config

		mu       sync.Mutex
		maxCache map[catalog.Path]maxCacheEntry
	}

	// maxCacheEntry caches a path's max score for one catalog revision.
	maxCacheEntry struct {
		revision int64
		max      float64
	}
)

func NewService(repo Repository, catalogSvc *catalog.Service, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalogSvc,
		logger:   logger,
		conf:     conf,
		maxCache: make(map[catalog.Path]maxCacheEntry),
	}
}

// Start creates a new draft submission for an organization.
func (svc *Service) Start(ctx context.Context, orgID int, ns NewSubmission) (Submission, error) {
	sub := Submission{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		Path:           ns.Path,
		Status:         StatusDraft,
		SavedAt:        time.Now().UTC(),
	}
	return svc.repo.CreateSubmission(ctx, sub)
}

func (svc *Service) Get(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter)
}

// SaveAnswer upserts one answer on a draft submission. Attachment requirements
// are not enforced here; they only bind at submit time.
func (svc *Service) SaveAnswer(ctx context.Context, submissionID string, sa SaveAnswer) error {
	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Status != StatusDraft {
		return core.NewValidationError(errors.New("only draft submissions can be edited"))
	}

	q, err := svc.catalog.GetQuestion(ctx, sa.QuestionID)
	if err != nil {
		return err
	}
	if q.Path != sub.Path {
		return core.NewValidationError(nil, core.FieldError{Field: "question_id", Error: "question does not belong to the submission's path"})
	}
	if !q.HasOption(sa.Option) {
		return core.NewValidationError(nil, core.FieldError{Field: "option", Error: fmt.Sprintf("%q is not a valid option", sa.Option)})
	}

	answer := Answer{QuestionID: sa.QuestionID, Option: sa.Option, Attachment: sa.Attachment}
	return svc.repo.UpsertAnswer(ctx, submissionID, answer)
}

// Submit finalizes a draft: every path question must be answered exactly once
// and questions flagged attachment_required must carry an attachment.
func (svc *Service) Submit(ctx context.Context, submissionID string) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if sub.Status != StatusDraft {
		return Submission{}, errors.Wrap(ErrStatusConflict, "submitting submission")
	}

	questions, err := svc.catalog.QuestionsForPath(ctx, sub.Path)
	if err != nil {
		return Submission{}, errors.Wrap(err, "loading path questions")
	}

	var fldErrs []core.FieldError
	for _, q := range questions {
		answer, ok := sub.AnswerFor(q.ID)
		if !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: "answers", Error: fmt.Sprintf("question %d is not answered", q.ID)})
			continue
		}
		if q.AttachmentRequired && answer.Attachment == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: "answers", Error: fmt.Sprintf("question %d requires an attachment", q.ID)})
		}
	}
	if len(fldErrs) > 0 {
		return Submission{}, core.NewValidationError(nil, fldErrs...)
	}

	if err := svc.repo.UpdateSubmissionStatus(ctx, submissionID, StatusDraft, StatusSubmitted); err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmission(ctx, submissionID)
}

// Score runs the engine on a submitted submission. The submitted -> scored
// compare-and-set transition doubles as the exclusive scoring lock: two
// concurrent calls cannot both persist a result.
func (svc *Service) Score(ctx context.Context, submissionID string) (ScoreResult, error) {
	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return ScoreResult{}, err
	}
	if sub.Status != StatusSubmitted {
		return ScoreResult{}, errors.Wrap(ErrStatusConflict, "scoring submission")
	}

	// capture the revision before the question snapshot: a catalog mutation
	// in between invalidates this run's cache entry instead of poisoning the
	// newer revision's.
	revision := svc.catalog.Revision()
	questions, err := svc.catalog.QuestionsForPath(ctx, sub.Path)
	if err != nil {
		return ScoreResult{}, errors.Wrap(err, "loading path questions")
	}

	// completeness: exactly one answer per path question
	var missing []int
	for _, q := range questions {
		if _, ok := sub.AnswerFor(q.ID); !ok {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		return ScoreResult{}, &IncompleteSubmissionError{Missing: missing}
	}

	strat, err := svc.strategyFor(ctx, sub.Path)
	if err != nil {
		return ScoreResult{}, err
	}

	// acquire the scoring lock
	if err := svc.repo.UpdateSubmissionStatus(ctx, submissionID, StatusSubmitted, StatusScored); err != nil {
		return ScoreResult{}, err
	}

	res, err := svc.compute(sub, questions, strat, revision)
	if err != nil {
		svc.revert(ctx, submissionID)
		svc.logger.Error("scoring run failed", err)
		return ScoreResult{}, err
	}

	res, err = svc.repo.CreateScoreResult(ctx, res)
	if err != nil {
		svc.revert(ctx, submissionID)
		return ScoreResult{}, errors.Wrap(err, "persisting score result")
	}
	return res, nil
}

// compute is the pure part of a scoring run: a function of (answers, catalog snapshot).
func (svc *Service) compute(sub Submission, questions []catalog.Question, strat Strategy, revision int64) (ScoreResult, error) {
	var sum float64
	for _, q := range questions {
		answer, _ := sub.AnswerFor(q.ID)
		base, err := strat.BasePoints(q, answer.Option)
		if err != nil {
			return ScoreResult{}, err
		}
		sum += strat.Weighted(base, q)
	}

	max, err := svc.maxScoreFor(strat, sub.Path, questions, revision)
	if err != nil {
		return ScoreResult{}, err
	}

	pct := clamp(sum/max*100, 0, 100)

	return ScoreResult{
		ID:           uuid.New().String(),
		SubmissionID: sub.ID,
		RawScore:     sum,
		MaxScore:     max,
		Percentage:   pct,
		Rank:         ResolveRank(pct, strat.Thresholds()),
		ComputedAt:   time.Now().UTC(),
	}, nil
}

// revert releases the scoring lock after a failed run (best effort).
func (svc *Service) revert(ctx context.Context, submissionID string) {
	if err := svc.repo.UpdateSubmissionStatus(ctx, submissionID, StatusScored, StatusSubmitted); err != nil {
		svc.logger.Error("reverting submission status", err)
	}
}

// Approve records the administrator's approval of a score result,
// transitioning its submission from scored to approved.
func (svc *Service) Approve(ctx context.Context, scoreResultID string) (ScoreResult, error) {
	res, err := svc.repo.GetScoreResult(ctx, scoreResultID)
	if err != nil {
		return ScoreResult{}, err
	}
	if err := svc.repo.UpdateSubmissionStatus(ctx, res.SubmissionID, StatusScored, StatusApproved); err != nil {
		return ScoreResult{}, err
	}
	return res, nil
}

// Transition applies a compare-and-set status transition on a submission.
// Used by downstream workflow steps (approval hosting, certificate issuance).
// Single-step moves are allowed in both directions so a failed step can roll back.
func (svc *Service) Transition(ctx context.Context, submissionID string, from, to Status) error {
	if !from.CanTransition(to) && !to.CanTransition(from) {
		return errors.Wrap(ErrStatusConflict, "illegal status transition")
	}
	return svc.repo.UpdateSubmissionStatus(ctx, submissionID, from, to)
}

func (svc *Service) Result(ctx context.Context, id string) (ScoreResult, error) {
	return svc.repo.GetScoreResult(ctx, id)
}

func (svc *Service) LatestResult(ctx context.Context, submissionID string) (ScoreResult, error) {
	return svc.repo.LatestScoreResult(ctx, submissionID)
}

// ThresholdsFor returns the rank table in effect for a path.
func (svc *Service) ThresholdsFor(path catalog.Path) []Threshold {
	if svc.conf != nil {
		if table := thresholdsFromOverride(svc.conf.Certificate.RankThresholds[string(path)]); table != nil {
			return table
		}
	}
	return DefaultThresholds()
}

func (svc *Service) strategyFor(ctx context.Context, path catalog.Path) (Strategy, error) {
	var axes []catalog.Axis
	if path == catalog.PathHR {
		var err error
		if axes, err = svc.catalog.AxesForPath(ctx, path); err != nil {
			return nil, errors.Wrap(err, "loading path axes")
		}
	}
	return NewStrategy(path, axes, svc.ThresholdsFor(path)), nil
}

// maxScoreFor returns the path's max score, cached per catalog revision:
// it only depends on the catalog, so the cache survives until a catalog
// mutation bumps the revision. The revision must be the one captured before
// the questions snapshot was loaded.
func (svc *Service) maxScoreFor(strat Strategy, path catalog.Path, questions []catalog.Question, revision int64) (float64, error) {
	svc.mu.Lock()
	if entry, ok := svc.maxCache[path]; ok && entry.revision == revision {
		svc.mu.Unlock()
		return entry.max, nil
	}
	svc.mu.Unlock()

	max := strat.MaxScore(questions)
	if max == 0 {
		return 0, &InvalidCatalogError{Path: path}
	}

	svc.mu.Lock()
	svc.maxCache[path] = maxCacheEntry{revision: revision, max: max}
	svc.mu.Unlock()
	return max, nil
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
