package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/scoring"
)

type catalogApi struct {
	svc      *catalog.Service
	scores   *scoring.Service
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := catalogApi{
		svc:      opts.CatalogSvc,
		scores:   opts.ScoringSvc,
		validate: opts.Validate,
	}

	cg := g.Group("/catalog", jwt)

	// any authed organization may browse the catalog of a path
	cg.GET("/:path/questions", api.queryQuestions)
	cg.GET("/:path/axes", api.queryAxes)
	cg.GET("/:path/thresholds", api.queryThresholds)

	// catalog edition is admin only
	ag := cg.Group("", adminMiddleware())
	ag.POST("/axes", api.createAxis)
	ag.POST("/questions", api.createQuestion)
	ag.PUT("/questions/:id", api.updateQuestion)
	ag.DELETE("/questions", api.destroyQuestions)
}

func pathParam(ctx echo.Context) (catalog.Path, error) {
	path := catalog.Path(ctx.Param("path"))
	if !path.Valid() {
		return "", errHttpNotFound
	}
	return path, nil
}

// Handlers

func (api *catalogApi) queryQuestions(ctx echo.Context) error {
	path, err := pathParam(ctx)
	if err != nil {
		return err
	}
	questions, err := api.svc.QuestionsForPath(ctx.Request().Context(), path)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if questions == nil {
		questions = []catalog.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *catalogApi) queryAxes(ctx echo.Context) error {
	path, err := pathParam(ctx)
	if err != nil {
		return err
	}
	axes, err := api.svc.AxesForPath(ctx.Request().Context(), path)
	if err != nil {
		return errors.Wrap(err, "querying axes")
	}
	if axes == nil {
		axes = []catalog.Axis{}
	}
	return ctx.JSON(http.StatusOK, axes)
}

func (api *catalogApi) queryThresholds(ctx echo.Context) error {
	path, err := pathParam(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.scores.ThresholdsFor(path))
}

func (api *catalogApi) createAxis(ctx echo.Context) error {
	var data catalog.NewAxis
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAxis")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	axis, err := api.svc.CreateAxis(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating axis")
	}
	return ctx.JSON(http.StatusCreated, axis)
}

func (api *catalogApi) createQuestion(ctx echo.Context) error {
	var data catalog.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.CreateQuestion(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *catalogApi) updateQuestion(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	orig, err := api.svc.GetQuestion(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	var data catalog.UpdateQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuestion")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	q, err := api.svc.UpdateQuestion(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *catalogApi) destroyQuestions(ctx echo.Context) error {
	var query DestroyQuestionsRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyQuestionsRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteQuestions(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type DestroyQuestionsRequest struct {
	IDs []int `query:"id"`
}
