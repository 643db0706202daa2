package catalog

import (
	"strings"
	"testing"

	"github.com/shieldhq/shield/core"
)

func TestPathCode(t *testing.T) {
	tests := []struct {
		path Path
		want string
	}{
		{PathStrategic, "STR"},
		{PathOperational, "OPS"},
		{PathHR, "HRC"},
		{Path("bogus"), "UNK"},
	}
	for _, tt := range tests {
		if got := tt.path.Code(); got != tt.want {
			t.Errorf("%q.Code() = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNewQuestionValidate(t *testing.T) {
	validate, _ := core.NewValidators()

	valid := func() NewQuestion {
		return NewQuestion{
			Path:    PathStrategic,
			Text:    "Is there a documented strategy?",
			Options: []string{"Yes", "No"},
			Points:  map[string]float64{"Yes": 10, "No": 0},
			Weight:  2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*NewQuestion)
		wantErr string // substring of a field error; empty means valid
	}{
		{
			name:   "valid",
			mutate: func(nq *NewQuestion) {},
		},
		{
			name:    "option without points entry",
			mutate:  func(nq *NewQuestion) { delete(nq.Points, "No") },
			wantErr: `option "No" has no points entry`,
		},
		{
			name:    "points entry without option",
			mutate:  func(nq *NewQuestion) { nq.Points["Maybe"] = 5 },
			wantErr: `points entry "Maybe" is not an option`,
		},
		{
			name:    "negative points",
			mutate:  func(nq *NewQuestion) { nq.Points["No"] = -1 },
			wantErr: `option "No" has negative points`,
		},
		{
			name: "hr question without axis",
			mutate: func(nq *NewQuestion) {
				nq.Path = PathHR
				nq.AxisID = 0
			},
			wantErr: "hr questions must belong to an axis",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nq := valid()
			tt.mutate(&nq)
			err := nq.Validate(validate)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			verr, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("Validate() error = %v, want *core.ValidationError", err)
			}
			var found bool
			for _, fld := range verr.Fields {
				if strings.Contains(fld.Error, tt.wantErr) {
					found = true
				}
			}
			if !found {
				t.Errorf("Fields = %v, want one containing %q", verr.Fields, tt.wantErr)
			}
		})
	}
}

func TestUpdateQuestionValidate(t *testing.T) {
	validate, _ := core.NewValidators()

	orig := Question{
		ID:      1,
		Path:    PathStrategic,
		Text:    "Original text",
		Options: []string{"Yes", "No"},
		Points:  map[string]float64{"Yes": 10, "No": 0},
		Weight:  2,
	}

	t.Run("zero values keep original", func(t *testing.T) {
		uq := UpdateQuestion{}
		if err := uq.Validate(orig, validate); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if uq.Text != orig.Text {
			t.Errorf("Text = %q, want %q", uq.Text, orig.Text)
		}
		if uq.Weight != orig.Weight {
			t.Errorf("Weight = %v, want %v", uq.Weight, orig.Weight)
		}
		if len(uq.Options) != 2 || uq.Points["Yes"] != 10 {
			t.Errorf("Options/Points not carried over: %v %v", uq.Options, uq.Points)
		}
	})

	t.Run("new options cross-validated against original points", func(t *testing.T) {
		uq := UpdateQuestion{Options: []string{"Yes", "No", "Partially"}}
		err := uq.Validate(orig, validate)
		if _, ok := err.(*core.ValidationError); !ok {
			t.Fatalf("Validate() error = %v, want *core.ValidationError", err)
		}
	})

	t.Run("consistent options and points pass", func(t *testing.T) {
		uq := UpdateQuestion{
			Options: []string{"Yes", "No", "Partially"},
			Points:  map[string]float64{"Yes": 10, "No": 0, "Partially": 5},
		}
		if err := uq.Validate(orig, validate); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
	})
}
