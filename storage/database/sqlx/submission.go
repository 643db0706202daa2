package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/scoring"
)

type (
	submissionRow struct {
		ID             string    `db:"id"`
		OrganizationID int       `db:"organization_id"`
		Path           string    `db:"path"`
		Status         string    `db:"status"`
		SavedAt        null.Time `db:"saved_at"`
		SubmittedAt    null.Time `db:"submitted_at"`
	}

	answerRow struct {
		SubmissionID string      `db:"submission_id"`
		QuestionID   int         `db:"question_id"`
		Option       string      `db:"option"`
		Attachment   null.String `db:"attachment"`
	}

	scoreResultRow struct {
		ID           string    `db:"id"`
		SubmissionID string    `db:"submission_id"`
		RawScore     float64   `db:"raw_score"`
		MaxScore     float64   `db:"max_score"`
		Percentage   float64   `db:"percentage"`
		Rank         string    `db:"rank"`
		ComputedAt   null.Time `db:"computed_at"`
	}
)

type submissionRepository struct {
	db *sqlx.DB
}

var _ scoring.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) unrowSubmission(row submissionRow, answers []answerRow) scoring.Submission {
	sub := scoring.Submission{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Path:           catalog.Path(row.Path),
		Status:         scoring.Status(row.Status),
		SavedAt:        row.SavedAt.Time,
		SubmittedAt:    row.SubmittedAt.Time,
	}
	for _, a := range answers {
		sub.Answers = append(sub.Answers, scoring.Answer{
			QuestionID: a.QuestionID,
			Option:     a.Option,
			Attachment: a.Attachment.String,
		})
	}
	return sub
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub scoring.Submission) (scoring.Submission, error) {
	row := submissionRow{
		ID:             sub.ID,
		OrganizationID: sub.OrganizationID,
		Path:           string(sub.Path),
		Status:         string(sub.Status),
		SavedAt:        null.NewTime(sub.SavedAt.UTC(), !sub.SavedAt.IsZero()),
	}
	query := `
		INSERT INTO submission (id, organization_id, path, status, saved_at)
		VALUES (:id, :organization_id, :path, :status, :saved_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return scoring.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string) (scoring.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM submission WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return scoring.Submission{}, scoring.ErrNotFound
		}
		return scoring.Submission{}, errors.Wrap(err, "finding submission by ID")
	}

	var answers []answerRow
	query := `SELECT * FROM answer WHERE submission_id = $1 ORDER BY question_id`
	if err := repo.db.SelectContext(ctx, &answers, query, id); err != nil {
		return scoring.Submission{}, errors.Wrap(err, "querying submission answers")
	}
	return repo.unrowSubmission(row, answers), nil
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter scoring.QueryFilter) ([]scoring.Submission, error) {
	query := `SELECT * FROM submission`
	var (
		conds []string
		args  []interface{}
	)
	if filter.OrganizationID != 0 {
		args = append(args, filter.OrganizationID)
		conds = append(conds, `organization_id = $`+strconv.Itoa(len(args)))
	}
	if filter.Path != "" {
		args = append(args, string(filter.Path))
		conds = append(conds, `path = $`+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, `status = $`+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY saved_at DESC`

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]scoring.Submission, 0, len(rows))
	for _, row := range rows {
		var answers []answerRow
		if err := repo.db.SelectContext(ctx, &answers, `SELECT * FROM answer WHERE submission_id = $1 ORDER BY question_id`, row.ID); err != nil {
			return nil, errors.Wrap(err, "querying submission answers")
		}
		subs = append(subs, repo.unrowSubmission(row, answers))
	}
	return subs, nil
}

func (repo *submissionRepository) UpsertAnswer(ctx context.Context, submissionID string, answer scoring.Answer) error {
	row := answerRow{
		SubmissionID: submissionID,
		QuestionID:   answer.QuestionID,
		Option:       answer.Option,
		Attachment:   null.NewString(answer.Attachment, answer.Attachment != ""),
	}
	query := `
		INSERT INTO answer (submission_id, question_id, option, attachment)
		VALUES (:submission_id, :question_id, :option, :attachment)
		ON CONFLICT (submission_id, question_id)
		DO UPDATE SET option = EXCLUDED.option, attachment = EXCLUDED.attachment`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return errors.Wrap(err, "upserting answer")
	}

	touch := `UPDATE submission SET saved_at = $1 WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, touch, time.Now().UTC(), submissionID); err != nil {
		return errors.Wrap(err, "touching submission")
	}
	return nil
}

func (repo *submissionRepository) UpdateSubmissionStatus(ctx context.Context, id string, from, to scoring.Status) error {
	query := `UPDATE submission SET status = $1 WHERE id = $2 AND status = $3`
	args := []interface{}{string(to), id, string(from)}
	if to == scoring.StatusSubmitted {
		query = `UPDATE submission SET status = $1, submitted_at = $4 WHERE id = $2 AND status = $3`
		args = append(args, time.Now().UTC())
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "updating submission status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// distinguish a missing row from a lost CAS race
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM submission WHERE id = $1)`, id); err != nil {
			return errors.Wrap(err, "updating submission status")
		}
		if !exists {
			return scoring.ErrNotFound
		}
		return scoring.ErrStatusConflict
	}
	return nil
}

func (repo *submissionRepository) CreateScoreResult(ctx context.Context, res scoring.ScoreResult) (scoring.ScoreResult, error) {
	row := scoreResultRow{
		ID:           res.ID,
		SubmissionID: res.SubmissionID,
		RawScore:     res.RawScore,
		MaxScore:     res.MaxScore,
		Percentage:   res.Percentage,
		Rank:         string(res.Rank),
		ComputedAt:   null.NewTime(res.ComputedAt.UTC(), !res.ComputedAt.IsZero()),
	}
	query := `
		INSERT INTO score_result (id, submission_id, raw_score, max_score, percentage, rank, computed_at)
		VALUES (:id, :submission_id, :raw_score, :max_score, :percentage, :rank, :computed_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return scoring.ScoreResult{}, errors.Wrap(err, "inserting score result")
	}
	return res, nil
}

func (repo *submissionRepository) GetScoreResult(ctx context.Context, id string) (scoring.ScoreResult, error) {
	var row scoreResultRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM score_result WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return scoring.ScoreResult{}, scoring.ErrResultNotFound
		}
		return scoring.ScoreResult{}, errors.Wrap(err, "finding score result by ID")
	}
	return repo.unrowResult(row), nil
}

func (repo *submissionRepository) LatestScoreResult(ctx context.Context, submissionID string) (scoring.ScoreResult, error) {
	var row scoreResultRow
	query := `SELECT * FROM score_result WHERE submission_id = $1 ORDER BY computed_at DESC LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, query, submissionID); err != nil {
		if err == sql.ErrNoRows {
			return scoring.ScoreResult{}, scoring.ErrResultNotFound
		}
		return scoring.ScoreResult{}, errors.Wrap(err, "finding latest score result")
	}
	return repo.unrowResult(row), nil
}

func (repo *submissionRepository) unrowResult(row scoreResultRow) scoring.ScoreResult {
	return scoring.ScoreResult{
		ID:           row.ID,
		SubmissionID: row.SubmissionID,
		RawScore:     row.RawScore,
		MaxScore:     row.MaxScore,
		Percentage:   row.Percentage,
		Rank:         scoring.Rank(row.Rank),
		ComputedAt:   row.ComputedAt.Time,
	}
}
