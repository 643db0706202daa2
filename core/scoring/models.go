package scoring

import (
	"time"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/catalog"
)

// Status is a Submission's position in the
// draft -> submitted -> scored -> approved -> issued state machine.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusScored    Status = "scored"
	StatusApproved  Status = "approved"
	StatusIssued    Status = "issued"
)

var statusOrder = map[Status]int{
	StatusDraft:     0,
	StatusSubmitted: 1,
	StatusScored:    2,
	StatusApproved:  3,
	StatusIssued:    4,
}

// CanTransition reports whether to is the immediate successor of s.
// No transition skips a state.
func (s Status) CanTransition(to Status) bool {
	from, ok := statusOrder[s]
	next, ok2 := statusOrder[to]
	return ok && ok2 && next == from+1
}

// Answer is one selected option for one question of a submission's path.
type Answer struct {
	QuestionID int    `json:"question_id"`
	Option     string `json:"option"`
	Attachment string `json:"attachment,omitempty"` // storage ref; required iff the question demands one
}

type Submission struct {
	ID             string       `json:"id"`
	OrganizationID int          `json:"organization_id"`
	Path           catalog.Path `json:"path"`
	Status         Status       `json:"status"`
	Answers        []Answer     `json:"answers"`
	SavedAt        time.Time    `json:"saved_at"`     // UTC, last draft save
	SubmittedAt    time.Time    `json:"submitted_at"` // UTC, zero until submitted
}

// AnswerFor returns the submission's answer for a question, if any.
func (s Submission) AnswerFor(questionID int) (Answer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// ScoreResult is the immutable outcome of one scoring run. Rescoring a
// submission appends a new row; historical rank decisions stay auditable.
type ScoreResult struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	RawScore     float64   `json:"raw_score"`
	MaxScore     float64   `json:"max_score"`
	Percentage   float64   `json:"percentage"`
	Rank         Rank      `json:"rank"`
	ComputedAt   time.Time `json:"computed_at"` // UTC
}

// NewSubmission contains information needed to start a draft submission.
type NewSubmission struct {
	Path catalog.Path `json:"path" validate:"required,oneof=strategic operational hr"`
}

func (ns *NewSubmission) Validate(validate catalog.Validator) error {
	return validate.Struct(ns)
}

// SaveAnswer upserts one answer on a draft submission.
type SaveAnswer struct {
	QuestionID int    `json:"question_id" validate:"required,gt=0"`
	Option     string `json:"option" validate:"required"`
	Attachment string `json:"attachment"`
}

func (sa *SaveAnswer) Validate(validate catalog.Validator) error {
	sa.Option = core.CleanString(sa.Option)
	return validate.Struct(sa)
}

type QueryFilter struct {
	OrganizationID int          `query:"organization_id"`
	Path           catalog.Path `query:"path"`
	Status         Status       `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.OrganizationID == 0 && qf.Path == "" && qf.Status == ""
}
