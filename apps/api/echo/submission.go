package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core/org"
	"github.com/shieldhq/shield/core/scoring"
)

var errSubNotFoundInCtx = errors.New("submission object not found in echo.Context")

type submissionApi struct {
	svc      *scoring.Service
	orgSvc   *org.Service
	validate *validator.Validate
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := submissionApi{
		svc:      opts.ScoringSvc,
		orgSvc:   opts.OrgSvc,
		validate: opts.Validate,
	}

	sg := g.Group("/submissions", jwt)
	sg.POST("", api.start)
	sg.GET("", api.query)

	dg := sg.Group("/:id", ctxSubmissionMiddleware(api.svc, api.orgSvc))
	dg.GET("", api.retrieve)
	dg.PUT("/answers", api.saveAnswer)
	dg.POST("/submit", api.submit)
	dg.GET("/result", api.latestResult)
	dg.POST("/score", api.score, adminMiddleware())

	rg := g.Group("/results", jwt)
	rg.GET("/:id", api.result)
	rg.POST("/:id/approve", api.approve, adminMiddleware())
}

// Handlers

func (api *submissionApi) start(ctx echo.Context) error {
	var data scoring.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxOrg, err := getContextOrg(ctx, api.orgSvc)
	if err != nil {
		return errors.Wrap(err, "getting context organization")
	}

	sub, err := api.svc.Start(ctx.Request().Context(), ctxOrg.ID, data)
	if err != nil {
		return errors.Wrap(err, "starting submission")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionApi) query(ctx echo.Context) error {
	filter := new(scoring.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []scoring.Submission{})
	}

	ctxOrg, err := getContextOrg(ctx, api.orgSvc)
	if err != nil {
		return errors.Wrap(err, "getting context organization")
	}
	// non-admins only see their own submissions
	if !ctxOrg.IsAdmin {
		filter.OrganizationID = ctxOrg.ID
	}

	subs, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []scoring.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(scoring.Submission)
	if !ok {
		return errors.Wrap(errSubNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) saveAnswer(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(scoring.Submission)
	if !ok {
		return errors.Wrap(errSubNotFoundInCtx, "retrieving object from context")
	}

	var data scoring.SaveAnswer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveAnswer")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SaveAnswer(ctx.Request().Context(), sub.ID, data); err != nil {
		return errors.Wrap(err, "saving answer")
	}

	sub, err := api.svc.Get(ctx.Request().Context(), sub.ID)
	if err != nil {
		return errors.Wrap(err, "finding submission by ID")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) submit(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(scoring.Submission)
	if !ok {
		return errors.Wrap(errSubNotFoundInCtx, "retrieving object from context")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), sub.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) score(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(scoring.Submission)
	if !ok {
		return errors.Wrap(errSubNotFoundInCtx, "retrieving object from context")
	}

	res, err := api.svc.Score(ctx.Request().Context(), sub.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *submissionApi) latestResult(ctx echo.Context) error {
	sub, ok := ctx.Get("object").(scoring.Submission)
	if !ok {
		return errors.Wrap(errSubNotFoundInCtx, "retrieving object from context")
	}

	res, err := api.svc.LatestResult(ctx.Request().Context(), sub.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *submissionApi) result(ctx echo.Context) error {
	res, err := api.svc.Result(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	// non-admins only see their own results
	ctxOrg, err2 := getContextOrg(ctx, api.orgSvc)
	if err2 != nil {
		return errors.Wrap(err2, "getting context organization")
	}
	if !ctxOrg.IsAdmin {
		sub, err := api.svc.Get(ctx.Request().Context(), res.SubmissionID)
		if err != nil {
			return err
		}
		if sub.OrganizationID != ctxOrg.ID {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *submissionApi) approve(ctx echo.Context) error {
	res, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func ctxSubmissionMiddleware(svc *scoring.Service, orgSvc *org.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxOrg, err := getContextOrg(ctx, orgSvc)
			if err != nil {
				return errors.Wrap(err, "getting context organization")
			}

			sub, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == scoring.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding submission by ID")
			}
			if sub.OrganizationID != ctxOrg.ID && !ctxOrg.IsAdmin {
				return errHttpNotFound
			}
			ctx.Set("object", sub)
			return next(ctx)
		}
	}
}
