package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core/certificate"
	"github.com/shieldhq/shield/core/org"
)

type certificateApi struct {
	svc    *certificate.Service
	orgSvc *org.Service
}

func registerCertificateAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := certificateApi{
		svc:    opts.CertificateSvc,
		orgSvc: opts.OrgSvc,
	}

	cg := g.Group("/certificates", jwt)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)

	// verification by number; any authed account
	cg.GET("/number/:number", api.retrieveByNumber)

	// issuance is admin only
	ag := cg.Group("", adminMiddleware())
	ag.POST("/issue/:resultID", api.issue)
	ag.POST("/:id/retry-render", api.retryRender)
}

// Handlers

func (api *certificateApi) query(ctx echo.Context) error {
	ctxOrg, err := getContextOrg(ctx, api.orgSvc)
	if err != nil {
		return errors.Wrap(err, "getting context organization")
	}

	orgID := ctxOrg.ID
	if ctxOrg.IsAdmin {
		var query CertificateQueryRequest
		if err := ctx.Bind(&query); err == nil && query.OrganizationID != 0 {
			orgID = query.OrganizationID
		}
	}

	certs, err := api.svc.QueryByOrganization(ctx.Request().Context(), orgID)
	if err != nil {
		return errors.Wrap(err, "querying certificates")
	}
	if certs == nil {
		certs = []certificate.Certificate{}
	}
	return ctx.JSON(http.StatusOK, certs)
}

func (api *certificateApi) retrieve(ctx echo.Context) error {
	cert, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := api.checkAccess(ctx, cert); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificateApi) retrieveByNumber(ctx echo.Context) error {
	cert, err := api.svc.GetByNumber(ctx.Request().Context(), ctx.Param("number"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificateApi) issue(ctx echo.Context) error {
	cert, err := api.svc.Issue(ctx.Request().Context(), ctx.Param("resultID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cert)
}

func (api *certificateApi) retryRender(ctx echo.Context) error {
	if err := api.svc.RetryRender(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusAccepted)
}

func (api *certificateApi) checkAccess(ctx echo.Context, cert certificate.Certificate) error {
	ctxOrg, err := getContextOrg(ctx, api.orgSvc)
	if err != nil {
		return errors.Wrap(err, "getting context organization")
	}
	if cert.OrganizationID != ctxOrg.ID && !ctxOrg.IsAdmin {
		return errHttpNotFound
	}
	return nil
}

type CertificateQueryRequest struct {
	OrganizationID int `query:"organization_id"`
}
