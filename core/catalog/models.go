package catalog

import (
	"fmt"
	"time"

	"github.com/shieldhq/shield/core"
)

// Path identifies one of the three certification tracks.
type Path string

const (
	PathStrategic   Path = "strategic"
	PathOperational Path = "operational"
	PathHR          Path = "hr"
)

var AllPaths = []Path{PathStrategic, PathOperational, PathHR}

func (p Path) Valid() bool {
	switch p {
	case PathStrategic, PathOperational, PathHR:
		return true
	}
	return false
}

// Code returns the 3-letter path code used in certificate numbers.
func (p Path) Code() string {
	switch p {
	case PathStrategic:
		return "STR"
	case PathOperational:
		return "OPS"
	case PathHR:
		return "HRC"
	}
	return "UNK"
}

// Axis groups HR-path questions sharing a thematic weight.
type Axis struct {
	ID        int       `json:"id"`
	Path      Path      `json:"path"`
	Name      string    `json:"name"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Question struct {
	ID                 int                `json:"id"`
	Path               Path               `json:"path"`
	AxisID             int                `json:"axis_id,omitempty"` // HR path only
	Text               string             `json:"text"`
	Options            []string           `json:"options"` // insertion order = display order
	Points             map[string]float64 `json:"points"`  // option label -> raw points
	Weight             float64            `json:"weight"`
	AttachmentRequired bool               `json:"attachment_required"`
	Position           int                `json:"position"`
	CreatedAt          time.Time          `json:"created_at"` // UTC
	UpdatedAt          time.Time          `json:"updated_at"` // UTC
}

// HasOption reports whether opt is one of the question's valid options.
func (q Question) HasOption(opt string) bool {
	for _, o := range q.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// MaxPoints returns the highest raw point value among the question's options.
func (q Question) MaxPoints() float64 {
	var max float64
	for _, pts := range q.Points {
		if pts > max {
			max = pts
		}
	}
	return max
}

// NewAxis contains information needed to create a new Axis.
type NewAxis struct {
	Path   Path    `json:"path" validate:"required,oneof=hr"`
	Name   string  `json:"name" validate:"required"`
	Weight float64 `json:"weight" validate:"required,gt=0"`
}

func (na *NewAxis) Validate(validate Validator) error {
	na.Name = core.CleanString(na.Name)
	return validate.Struct(na)
}

// NewQuestion contains information needed to create a new Question.
// The option list and points mapping are cross-validated here, at edit time;
// the scoring engine assumes they agree.
type NewQuestion struct {
	Path               Path               `json:"path" validate:"required,oneof=strategic operational hr"`
	AxisID             int                `json:"axis_id"`
	Text               string             `json:"text" validate:"required"`
	Options            []string           `json:"options" validate:"required,min=2,unique"`
	Points             map[string]float64 `json:"points" validate:"required"`
	Weight             float64            `json:"weight" validate:"required,gt=0"`
	AttachmentRequired bool               `json:"attachment_required"`
	Position           int                `json:"position"`
}

func (nq *NewQuestion) Validate(validate Validator) error {
	nq.Text = core.CleanString(nq.Text)
	if err := validate.Struct(nq); err != nil {
		return err
	}
	return validateOptionPoints(nq.Path, nq.AxisID, nq.Options, nq.Points)
}

// UpdateQuestion defines what information may be provided to modify an existing Question.
// Zero-value fields keep the original value.
type UpdateQuestion struct {
	Text               string             `json:"text"`
	Options            []string           `json:"options" validate:"omitempty,min=2,unique"`
	Points             map[string]float64 `json:"points"`
	Weight             float64            `json:"weight" validate:"omitempty,gt=0"`
	AttachmentRequired *bool              `json:"attachment_required"`
	Position           *int               `json:"position"`
}

func (uq *UpdateQuestion) Validate(orig Question, validate Validator) error {
	text := core.CleanString(uq.Text)
	if text != "" {
		uq.Text = text
	} else {
		uq.Text = orig.Text
	}
	if uq.Options == nil {
		uq.Options = orig.Options
	}
	if uq.Points == nil {
		uq.Points = orig.Points
	}
	if uq.Weight == 0 {
		uq.Weight = orig.Weight
	}

	if err := validate.Struct(uq); err != nil {
		return err
	}
	return validateOptionPoints(orig.Path, orig.AxisID, uq.Options, uq.Points)
}

// Validator is the subset of validator.Validate the catalog payloads need.
type Validator interface {
	Struct(s interface{}) error
}

// validateOptionPoints cross-validates the option list against the points mapping:
// every option must have a points entry, the mapping may not carry extra entries,
// points must be non-negative and HR questions must belong to an axis.
func validateOptionPoints(path Path, axisID int, options []string, points map[string]float64) error {
	var fldErrs []core.FieldError

	if path == PathHR && axisID == 0 {
		fldErrs = append(fldErrs, core.FieldError{Field: "axis_id", Error: "hr questions must belong to an axis"})
	}
	for _, opt := range options {
		pts, ok := points[opt]
		if !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: "points", Error: fmt.Sprintf("option %q has no points entry", opt)})
			continue
		}
		if pts < 0 {
			fldErrs = append(fldErrs, core.FieldError{Field: "points", Error: fmt.Sprintf("option %q has negative points", opt)})
		}
	}
	for opt := range points {
		var found bool
		for _, o := range options {
			if o == opt {
				found = true
				break
			}
		}
		if !found {
			fldErrs = append(fldErrs, core.FieldError{Field: "points", Error: fmt.Sprintf("points entry %q is not an option", opt)})
		}
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}
