package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shieldhq/shield/core/catalog"
)

type (
	axisRow struct {
		ID        int       `db:"id"`
		Path      string    `db:"path"`
		Name      string    `db:"name"`
		Weight    float64   `db:"weight"`
		CreatedAt null.Time `db:"created_at"`
		UpdatedAt null.Time `db:"updated_at"`
	}

	questionRow struct {
		ID                 int             `db:"id"`
		Path               string          `db:"path"`
		AxisID             null.Int        `db:"axis_id"`
		Text               string          `db:"text"`
		Options            json.RawMessage `db:"options"`
		Points             json.RawMessage `db:"points"`
		Weight             float64         `db:"weight"`
		AttachmentRequired bool            `db:"attachment_required"`
		Position           int             `db:"position"`
		CreatedAt          null.Time       `db:"created_at"`
		UpdatedAt          null.Time       `db:"updated_at"`
	}
)

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db *sqlx.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo *catalogRepository) axisRow(axis catalog.Axis) axisRow {
	return axisRow{
		ID:        axis.ID,
		Path:      string(axis.Path),
		Name:      axis.Name,
		Weight:    axis.Weight,
		CreatedAt: null.NewTime(axis.CreatedAt.UTC(), !axis.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(axis.UpdatedAt.UTC(), !axis.UpdatedAt.IsZero()),
	}
}

func (repo *catalogRepository) unrowAxis(row axisRow) catalog.Axis {
	return catalog.Axis{
		ID:        row.ID,
		Path:      catalog.Path(row.Path),
		Name:      row.Name,
		Weight:    row.Weight,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo *catalogRepository) questionRow(q catalog.Question) (questionRow, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return questionRow{}, errors.Wrap(err, "encoding question options")
	}
	points, err := json.Marshal(q.Points)
	if err != nil {
		return questionRow{}, errors.Wrap(err, "encoding question points")
	}
	return questionRow{
		ID:                 q.ID,
		Path:               string(q.Path),
		AxisID:             null.NewInt(q.AxisID, q.AxisID != 0),
		Text:               q.Text,
		Options:            options,
		Points:             points,
		Weight:             q.Weight,
		AttachmentRequired: q.AttachmentRequired,
		Position:           q.Position,
		CreatedAt:          null.NewTime(q.CreatedAt.UTC(), !q.CreatedAt.IsZero()),
		UpdatedAt:          null.NewTime(q.UpdatedAt.UTC(), !q.UpdatedAt.IsZero()),
	}, nil
}

func (repo *catalogRepository) unrowQuestion(row questionRow) (catalog.Question, error) {
	var options []string
	if err := json.Unmarshal(row.Options, &options); err != nil {
		return catalog.Question{}, errors.Wrap(err, "decoding question options")
	}
	var points map[string]float64
	if err := json.Unmarshal(row.Points, &points); err != nil {
		return catalog.Question{}, errors.Wrap(err, "decoding question points")
	}
	return catalog.Question{
		ID:                 row.ID,
		Path:               catalog.Path(row.Path),
		AxisID:             row.AxisID.Int,
		Text:               row.Text,
		Options:            options,
		Points:             points,
		Weight:             row.Weight,
		AttachmentRequired: row.AttachmentRequired,
		Position:           row.Position,
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}, nil
}

func (repo *catalogRepository) CreateAxis(ctx context.Context, axis catalog.Axis) (catalog.Axis, error) {
	row := repo.axisRow(axis)
	query := `
		INSERT INTO axis (path, name, weight, created_at, updated_at)
		VALUES (:path, :name, :weight, :created_at, :updated_at)
		RETURNING id`

	stmt, err := repo.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return catalog.Axis{}, errors.Wrap(err, "inserting axis")
	}
	defer func() { _ = stmt.Close() }()
	if err = stmt.GetContext(ctx, &row.ID, row); err != nil {
		return catalog.Axis{}, errors.Wrap(err, "inserting axis")
	}
	return repo.unrowAxis(row), nil
}

func (repo *catalogRepository) GetAxis(ctx context.Context, id int) (catalog.Axis, error) {
	var row axisRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM axis WHERE id = $1`, id); err != nil {
		return catalog.Axis{}, repo.trapNoRowsErr(err, catalog.ErrAxisNotFound, "finding axis by ID")
	}
	return repo.unrowAxis(row), nil
}

func (repo *catalogRepository) QueryAxes(ctx context.Context, path catalog.Path) ([]catalog.Axis, error) {
	var rows []axisRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM axis WHERE path = $1 ORDER BY id`, string(path)); err != nil {
		return nil, errors.Wrap(err, "querying axes")
	}
	axes := make([]catalog.Axis, 0, len(rows))
	for _, row := range rows {
		axes = append(axes, repo.unrowAxis(row))
	}
	return axes, nil
}

func (repo *catalogRepository) UpdateAxis(ctx context.Context, axis catalog.Axis) (catalog.Axis, error) {
	row := repo.axisRow(axis)
	query := `UPDATE axis SET name = :name, weight = :weight, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return catalog.Axis{}, errors.Wrap(err, "updating axis")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Axis{}, catalog.ErrAxisNotFound
	}
	return repo.GetAxis(ctx, axis.ID)
}

func (repo *catalogRepository) CreateQuestion(ctx context.Context, question catalog.Question) (catalog.Question, error) {
	row, err := repo.questionRow(question)
	if err != nil {
		return catalog.Question{}, err
	}
	query := `
		INSERT INTO question (path, axis_id, text, options, points, weight, attachment_required, position, created_at, updated_at)
		VALUES (:path, :axis_id, :text, :options, :points, :weight, :attachment_required, :position, :created_at, :updated_at)
		RETURNING id`

	stmt, err := repo.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return catalog.Question{}, errors.Wrap(err, "inserting question")
	}
	defer func() { _ = stmt.Close() }()
	if err = stmt.GetContext(ctx, &row.ID, row); err != nil {
		return catalog.Question{}, errors.Wrap(err, "inserting question")
	}
	return repo.unrowQuestion(row)
}

func (repo *catalogRepository) GetQuestion(ctx context.Context, id int) (catalog.Question, error) {
	var row questionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM question WHERE id = $1`, id); err != nil {
		return catalog.Question{}, repo.trapNoRowsErr(err, catalog.ErrQuestionNotFound, "finding question by ID")
	}
	return repo.unrowQuestion(row)
}

func (repo *catalogRepository) QueryQuestions(ctx context.Context, path catalog.Path) ([]catalog.Question, error) {
	var rows []questionRow
	query := `SELECT * FROM question WHERE path = $1 ORDER BY position, id`
	if err := repo.db.SelectContext(ctx, &rows, query, string(path)); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]catalog.Question, 0, len(rows))
	for _, row := range rows {
		q, err := repo.unrowQuestion(row)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (repo *catalogRepository) UpdateQuestion(ctx context.Context, question catalog.Question) (catalog.Question, error) {
	row, err := repo.questionRow(question)
	if err != nil {
		return catalog.Question{}, err
	}
	query := `
		UPDATE question
		SET axis_id = :axis_id, text = :text, options = :options, points = :points, weight = :weight,
		    attachment_required = :attachment_required, position = :position, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return catalog.Question{}, errors.Wrap(err, "updating question")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Question{}, catalog.ErrQuestionNotFound
	}
	return repo.GetQuestion(ctx, question.ID)
}

func (repo *catalogRepository) DeleteQuestionsByID(ctx context.Context, ids ...int) error {
	query, args, err := sqlx.In(`DELETE FROM question WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	return nil
}
