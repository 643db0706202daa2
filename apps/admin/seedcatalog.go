package main

import (
	"context"

	"github.com/shieldhq/shield/core/catalog"
)

var yesPartialNo = options{
	labels: []string{"Yes", "Partially", "No"},
	points: map[string]float64{"Yes": 100, "Partially": 50, "No": 0},
}

type options struct {
	labels []string
	points map[string]float64
}

// seedCatalog loads a default question set for the three certification paths.
// Paths that already carry questions are left alone.
func (cli *commandLine) seedCatalog() error {
	ctx := context.Background()

	if err := cli.seedStrategic(ctx); err != nil {
		return err
	}
	if err := cli.seedOperational(ctx); err != nil {
		return err
	}
	return cli.seedHR(ctx)
}

func (cli *commandLine) pathIsEmpty(ctx context.Context, path catalog.Path) (bool, error) {
	questions, err := cli.catalogSvc.QuestionsForPath(ctx, path)
	if err != nil {
		return false, err
	}
	return len(questions) == 0, nil
}

func (cli *commandLine) seedStrategic(ctx context.Context) error {
	empty, err := cli.pathIsEmpty(ctx, catalog.PathStrategic)
	if err != nil || !empty {
		return err
	}

	texts := []struct {
		text   string
		weight float64
		attach bool
	}{
		{"Does your organization maintain a written long-term strategy reviewed by the board?", 3, true},
		{"Are strategic objectives broken down into measurable yearly targets?", 2, false},
		{"Is progress against strategic targets reported to stakeholders at least quarterly?", 2, false},
		{"Does the organization run a formal risk assessment covering its strategic plan?", 3, true},
		{"Are competitor and market analyses refreshed at least once a year?", 1, false},
	}
	for i, q := range texts {
		_, err := cli.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
			Path:               catalog.PathStrategic,
			Text:               q.text,
			Options:            yesPartialNo.labels,
			Points:             yesPartialNo.points,
			Weight:             q.weight,
			AttachmentRequired: q.attach,
			Position:           i + 1,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (cli *commandLine) seedOperational(ctx context.Context) error {
	empty, err := cli.pathIsEmpty(ctx, catalog.PathOperational)
	if err != nil || !empty {
		return err
	}

	texts := []struct {
		text   string
		weight float64
		attach bool
	}{
		{"Are core operating procedures documented and versioned?", 2, true},
		{"Does the organization track operational KPIs on a monthly basis?", 2, false},
		{"Is there a tested business continuity plan?", 3, true},
		{"Are supplier contracts reviewed on a fixed schedule?", 1, false},
		{"Is there a formal incident management process with post-mortems?", 2, false},
	}
	for i, q := range texts {
		_, err := cli.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
			Path:               catalog.PathOperational,
			Text:               q.text,
			Options:            yesPartialNo.labels,
			Points:             yesPartialNo.points,
			Weight:             q.weight,
			AttachmentRequired: q.attach,
			Position:           i + 1,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (cli *commandLine) seedHR(ctx context.Context) error {
	empty, err := cli.pathIsEmpty(ctx, catalog.PathHR)
	if err != nil || !empty {
		return err
	}

	axes := []struct {
		name      string
		weight    float64
		questions []struct {
			text   string
			weight float64
		}
	}{
		{"Recruitment & Onboarding", 2, []struct {
			text   string
			weight float64
		}{
			{"Are job descriptions and hiring criteria documented for every role?", 2},
			{"Does every new hire go through a structured onboarding program?", 1},
		}},
		{"Development & Training", 3, []struct {
			text   string
			weight float64
		}{
			{"Does each employee have an individual development plan?", 2},
			{"Is a yearly training budget allocated and tracked?", 1},
		}},
		{"Wellbeing & Retention", 2, []struct {
			text   string
			weight float64
		}{
			{"Is employee satisfaction measured at least twice a year?", 2},
			{"Are exit interviews conducted and analyzed?", 1},
		}},
	}

	position := 1
	for _, a := range axes {
		axis, err := cli.catalogSvc.CreateAxis(ctx, catalog.NewAxis{
			Path:   catalog.PathHR,
			Name:   a.name,
			Weight: a.weight,
		})
		if err != nil {
			return err
		}
		for _, q := range a.questions {
			_, err := cli.catalogSvc.CreateQuestion(ctx, catalog.NewQuestion{
				Path:     catalog.PathHR,
				AxisID:   axis.ID,
				Text:     q.text,
				Options:  yesPartialNo.labels,
				Points:   yesPartialNo.points,
				Weight:   q.weight,
				Position: position,
			})
			if err != nil {
				return err
			}
			position++
		}
	}
	return nil
}
