package scoring_test

import (
	"context"
	"io/ioutil"
	"log"
	"testing"

	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/scoring"
	logsvc "github.com/shieldhq/shield/services/logger"
	"github.com/shieldhq/shield/storage/database/inmem"
)

type testEnv struct {
	catalogSvc *catalog.Service
	scoringSvc *scoring.Service
}

func setup(t *testing.T, conf *core.Config) testEnv {
	t.Helper()
	db, err := inmem.Open()
	if err != nil {
		t.Fatalf("opening inmem db: %v", err)
	}
	if conf == nil {
		conf = &core.Config{}
	}
	logger := logsvc.NewStdLogger(log.New(ioutil.Discard, "", 0))
	catalogSvc := catalog.NewService(inmem.NewCatalogRepository(db))
	scoringSvc := scoring.NewService(inmem.NewSubmissionRepository(db), catalogSvc, logger, conf)
	return testEnv{catalogSvc: catalogSvc, scoringSvc: scoringSvc}
}

func (env testEnv) seedStrategic(t *testing.T) []catalog.Question {
	t.Helper()
	ctx := context.Background()

	q1, err := env.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
		Path:    catalog.PathStrategic,
		Text:    "Does the board review strategy yearly?",
		Options: []string{"A", "B"},
		Points:  map[string]float64{"A": 10, "B": 20},
		Weight:  2,
	})
	if err != nil {
		t.Fatalf("seeding question: %v", err)
	}
	q2, err := env.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
		Path:    catalog.PathStrategic,
		Text:    "Are targets measurable?",
		Options: []string{"A", "B"},
		Points:  map[string]float64{"A": 5, "B": 15},
		Weight:  1,
	})
	if err != nil {
		t.Fatalf("seeding question: %v", err)
	}
	return []catalog.Question{q1, q2}
}

func (env testEnv) startAndAnswer(t *testing.T, answers map[int]string) scoring.Submission {
	t.Helper()
	ctx := context.Background()

	sub, err := env.scoringSvc.Start(ctx, 1, scoring.NewSubmission{Path: catalog.PathStrategic})
	if err != nil {
		t.Fatalf("starting submission: %v", err)
	}
	for qid, opt := range answers {
		if err := env.scoringSvc.SaveAnswer(ctx, sub.ID, scoring.SaveAnswer{QuestionID: qid, Option: opt}); err != nil {
			t.Fatalf("saving answer: %v", err)
		}
	}
	return sub
}

func TestService_fullScoringRun(t *testing.T) {
	env := setup(t, nil)
	questions := env.seedStrategic(t)
	ctx := context.Background()

	sub := env.startAndAnswer(t, map[int]string{questions[0].ID: "B", questions[1].ID: "B"})
	if _, err := env.scoringSvc.Submit(ctx, sub.ID); err != nil {
		t.Fatalf("submitting: %v", err)
	}

	res, err := env.scoringSvc.Score(ctx, sub.ID)
	if err != nil {
		t.Fatalf("scoring: %v", err)
	}
	if res.RawScore != 55 {
		t.Errorf("RawScore = %v, want 55", res.RawScore)
	}
	if res.MaxScore != 55 {
		t.Errorf("MaxScore = %v, want 55", res.MaxScore)
	}
	if res.Percentage != 100 {
		t.Errorf("Percentage = %v, want 100", res.Percentage)
	}
	if res.Rank != scoring.RankDiamond {
		t.Errorf("Rank = %v, want %v", res.Rank, scoring.RankDiamond)
	}

	got, err := env.scoringSvc.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("finding submission: %v", err)
	}
	if got.Status != scoring.StatusScored {
		t.Errorf("Status = %v, want %v", got.Status, scoring.StatusScored)
	}

	latest, err := env.scoringSvc.LatestResult(ctx, sub.ID)
	if err != nil {
		t.Fatalf("finding latest result: %v", err)
	}
	if latest.ID != res.ID {
		t.Errorf("LatestResult ID = %v, want %v", latest.ID, res.ID)
	}
}

func TestService_rankBoundary(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()

	q, err := env.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
		Path:    catalog.PathStrategic,
		Text:    "Single question",
		Options: []string{"A", "B"},
		Points:  map[string]float64{"A": 75, "B": 100},
		Weight:  1,
	})
	if err != nil {
		t.Fatalf("seeding question: %v", err)
	}

	sub := env.startAndAnswer(t, map[int]string{q.ID: "A"})
	if _, err := env.scoringSvc.Submit(ctx, sub.ID); err != nil {
		t.Fatalf("submitting: %v", err)
	}

	res, err := env.scoringSvc.Score(ctx, sub.ID)
	if err != nil {
		t.Fatalf("scoring: %v", err)
	}
	// 75.0 is inclusive
	if res.Percentage != 75 {
		t.Errorf("Percentage = %v, want 75", res.Percentage)
	}
	if res.Rank != scoring.RankGold {
		t.Errorf("Rank = %v, want %v", res.Rank, scoring.RankGold)
	}
}

func TestService_submitValidations(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()

	q, err := env.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
		Path:               catalog.PathStrategic,
		Text:               "Evidence required",
		Options:            []string{"Yes", "No"},
		Points:             map[string]float64{"Yes": 10, "No": 0},
		Weight:             1,
		AttachmentRequired: true,
	})
	if err != nil {
		t.Fatalf("seeding question: %v", err)
	}

	t.Run("unanswered question", func(t *testing.T) {
		sub := env.startAndAnswer(t, nil)
		_, err := env.scoringSvc.Submit(ctx, sub.ID)
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Submit() error = %v, want *core.ValidationError", err)
		}
	})

	t.Run("missing required attachment", func(t *testing.T) {
		sub := env.startAndAnswer(t, map[int]string{q.ID: "Yes"})
		_, err := env.scoringSvc.Submit(ctx, sub.ID)
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Submit() error = %v, want *core.ValidationError", err)
		}
	})

	t.Run("attachment provided", func(t *testing.T) {
		sub := env.startAndAnswer(t, nil)
		err := env.scoringSvc.SaveAnswer(ctx, sub.ID, scoring.SaveAnswer{
			QuestionID: q.ID,
			Option:     "Yes",
			Attachment: "uploads/evidence.pdf",
		})
		if err != nil {
			t.Fatalf("saving answer: %v", err)
		}
		got, err := env.scoringSvc.Submit(ctx, sub.ID)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if got.Status != scoring.StatusSubmitted {
			t.Errorf("Status = %v, want %v", got.Status, scoring.StatusSubmitted)
		}
		if got.SubmittedAt.IsZero() {
			t.Error("SubmittedAt not set")
		}
	})
}

func TestService_saveAnswerValidations(t *testing.T) {
	env := setup(t, nil)
	questions := env.seedStrategic(t)
	ctx := context.Background()

	sub := env.startAndAnswer(t, nil)

	t.Run("unknown option", func(t *testing.T) {
		err := env.scoringSvc.SaveAnswer(ctx, sub.ID, scoring.SaveAnswer{QuestionID: questions[0].ID, Option: "Z"})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("SaveAnswer() error = %v, want *core.ValidationError", err)
		}
	})

	t.Run("resaving overwrites", func(t *testing.T) {
		for _, opt := range []string{"A", "B"} {
			if err := env.scoringSvc.SaveAnswer(ctx, sub.ID, scoring.SaveAnswer{QuestionID: questions[0].ID, Option: opt}); err != nil {
				t.Fatalf("saving answer: %v", err)
			}
		}
		got, _ := env.scoringSvc.Get(ctx, sub.ID)
		if len(got.Answers) != 1 {
			t.Fatalf("len(Answers) = %d, want 1", len(got.Answers))
		}
		if got.Answers[0].Option != "B" {
			t.Errorf("Option = %q, want B", got.Answers[0].Option)
		}
	})

	t.Run("submitted submissions are frozen", func(t *testing.T) {
		frozen := env.startAndAnswer(t, map[int]string{questions[0].ID: "A", questions[1].ID: "A"})
		if _, err := env.scoringSvc.Submit(ctx, frozen.ID); err != nil {
			t.Fatalf("submitting: %v", err)
		}
		err := env.scoringSvc.SaveAnswer(ctx, frozen.ID, scoring.SaveAnswer{QuestionID: questions[0].ID, Option: "B"})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("SaveAnswer() error = %v, want *core.ValidationError", err)
		}
	})
}

func TestService_scorePreconditions(t *testing.T) {
	env := setup(t, nil)
	questions := env.seedStrategic(t)
	ctx := context.Background()

	t.Run("draft cannot be scored", func(t *testing.T) {
		sub := env.startAndAnswer(t, nil)
		_, err := env.scoringSvc.Score(ctx, sub.ID)
		if errors.Cause(err) != scoring.ErrStatusConflict {
			t.Errorf("Score() error = %v, want ErrStatusConflict", err)
		}
	})

	t.Run("double scoring is blocked", func(t *testing.T) {
		sub := env.startAndAnswer(t, map[int]string{questions[0].ID: "A", questions[1].ID: "A"})
		if _, err := env.scoringSvc.Submit(ctx, sub.ID); err != nil {
			t.Fatalf("submitting: %v", err)
		}
		if _, err := env.scoringSvc.Score(ctx, sub.ID); err != nil {
			t.Fatalf("scoring: %v", err)
		}
		_, err := env.scoringSvc.Score(ctx, sub.ID)
		if errors.Cause(err) != scoring.ErrStatusConflict {
			t.Errorf("Score() error = %v, want ErrStatusConflict", err)
		}
	})

	t.Run("catalog grown after submit", func(t *testing.T) {
		sub := env.startAndAnswer(t, map[int]string{questions[0].ID: "A", questions[1].ID: "A"})
		if _, err := env.scoringSvc.Submit(ctx, sub.ID); err != nil {
			t.Fatalf("submitting: %v", err)
		}
		extra, err := env.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
			Path:    catalog.PathStrategic,
			Text:    "Added after submission",
			Options: []string{"A", "B"},
			Points:  map[string]float64{"A": 1, "B": 2},
			Weight:  1,
		})
		if err != nil {
			t.Fatalf("seeding question: %v", err)
		}

		_, err = env.scoringSvc.Score(ctx, sub.ID)
		ierr, ok := errors.Cause(err).(*scoring.IncompleteSubmissionError)
		if !ok {
			t.Fatalf("Score() error = %v, want *IncompleteSubmissionError", err)
		}
		if len(ierr.Missing) != 1 || ierr.Missing[0] != extra.ID {
			t.Errorf("Missing = %v, want [%d]", ierr.Missing, extra.ID)
		}

		// no result was produced and the submission is still scoreable later
		if _, err := env.scoringSvc.LatestResult(ctx, sub.ID); errors.Cause(err) != scoring.ErrResultNotFound {
			t.Errorf("LatestResult() error = %v, want ErrResultNotFound", err)
		}
		got, _ := env.scoringSvc.Get(ctx, sub.ID)
		if got.Status != scoring.StatusSubmitted {
			t.Errorf("Status = %v, want %v", got.Status, scoring.StatusSubmitted)
		}
	})
}

func TestService_zeroMaxCatalog(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()

	q, err := env.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
		Path:    catalog.PathStrategic,
		Text:    "All options are worthless",
		Options: []string{"A", "B"},
		Points:  map[string]float64{"A": 0, "B": 0},
		Weight:  1,
	})
	if err != nil {
		t.Fatalf("seeding question: %v", err)
	}

	sub := env.startAndAnswer(t, map[int]string{q.ID: "A"})
	if _, err := env.scoringSvc.Submit(ctx, sub.ID); err != nil {
		t.Fatalf("submitting: %v", err)
	}

	_, err = env.scoringSvc.Score(ctx, sub.ID)
	if _, ok := errors.Cause(err).(*scoring.InvalidCatalogError); !ok {
		t.Fatalf("Score() error = %v, want *InvalidCatalogError", err)
	}

	// the scoring lock was released
	got, _ := env.scoringSvc.Get(ctx, sub.ID)
	if got.Status != scoring.StatusSubmitted {
		t.Errorf("Status = %v, want %v", got.Status, scoring.StatusSubmitted)
	}
}

func TestService_thresholdOverride(t *testing.T) {
	conf := &core.Config{
		Certificate: core.CertificateConfig{
			RankThresholds: map[string]map[string]float64{
				"strategic": {"diamond": 95, "gold": 80, "silver": 65, "bronze": 0},
			},
		},
	}
	env := setup(t, conf)
	ctx := context.Background()

	q, err := env.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
		Path:    catalog.PathStrategic,
		Text:    "Single question",
		Options: []string{"A", "B"},
		Points:  map[string]float64{"A": 90, "B": 100},
		Weight:  1,
	})
	if err != nil {
		t.Fatalf("seeding question: %v", err)
	}

	sub := env.startAndAnswer(t, map[int]string{q.ID: "A"})
	if _, err := env.scoringSvc.Submit(ctx, sub.ID); err != nil {
		t.Fatalf("submitting: %v", err)
	}

	// 90% is diamond by default but only gold under the strategic override
	res, err := env.scoringSvc.Score(ctx, sub.ID)
	if err != nil {
		t.Fatalf("scoring: %v", err)
	}
	if res.Rank != scoring.RankGold {
		t.Errorf("Rank = %v, want %v", res.Rank, scoring.RankGold)
	}
}

func TestService_approve(t *testing.T) {
	env := setup(t, nil)
	questions := env.seedStrategic(t)
	ctx := context.Background()

	sub := env.startAndAnswer(t, map[int]string{questions[0].ID: "B", questions[1].ID: "A"})
	if _, err := env.scoringSvc.Submit(ctx, sub.ID); err != nil {
		t.Fatalf("submitting: %v", err)
	}
	res, err := env.scoringSvc.Score(ctx, sub.ID)
	if err != nil {
		t.Fatalf("scoring: %v", err)
	}

	if _, err := env.scoringSvc.Approve(ctx, res.ID); err != nil {
		t.Fatalf("approving: %v", err)
	}
	got, _ := env.scoringSvc.Get(ctx, sub.ID)
	if got.Status != scoring.StatusApproved {
		t.Errorf("Status = %v, want %v", got.Status, scoring.StatusApproved)
	}

	// approving twice conflicts
	if _, err := env.scoringSvc.Approve(ctx, res.ID); errors.Cause(err) != scoring.ErrStatusConflict {
		t.Errorf("Approve() error = %v, want ErrStatusConflict", err)
	}
}
