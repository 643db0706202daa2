package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/org"
)

var errOrgNotFoundInCtx = errors.New("organization object not found in echo.Context")

type orgApi struct {
	svc      *org.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerOrgAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := orgApi{
		svc:      opts.OrgSvc,
		conf:     opts.Conf,
		validate: opts.Validate,
	}

	og := g.Group("/organizations")

	// un-authed endpoints
	// TODO: rate limit `/password-reset` & `/password-reset-confirm`
	og.POST("/register", api.register)
	og.POST("/login", api.login)
	og.POST("/password-reset", api.resetPassword)
	og.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := og.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("", api.query, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxOrgOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *orgApi) register(ctx echo.Context) error {
	var data org.NewOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrganization")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	o, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating organization")
	}
	return ctx.JSON(http.StatusCreated, o)
}

func (api *orgApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc, api.conf)
	if err != nil {
		if errors.Cause(err) == org.ErrNotFound {
			return core.NewValidationError(errors.New("invalid credentials"))
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *orgApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == org.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *orgApi) confirmPasswordReset(ctx echo.Context) error {
	var data org.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *orgApi) query(ctx echo.Context) error {
	orgs, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying organizations")
	}
	if orgs == nil {
		orgs = []org.Organization{}
	}
	return ctx.JSON(http.StatusOK, orgs)
}

func (api *orgApi) retrieve(ctx echo.Context) error {
	o, ok := ctx.Get("object").(org.Organization)
	if !ok {
		return errors.Wrap(errOrgNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *orgApi) update(ctx echo.Context) error {
	o, ok := ctx.Get("object").(org.Organization)
	if !ok {
		return errors.Wrap(errOrgNotFoundInCtx, "retrieving object from context")
	}

	var data org.UpdateOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOrganization")
	}

	ctxOrg, err := getContextOrg(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context organization")
	}
	if !ctxOrg.IsAdmin {
		// `IsActive` can only be changed by admin
		if data.IsActive != nil {
			return errHttpForbidden
		}
	}

	if err := data.Validate(ctx.Request().Context(), o, api.validate, api.svc); err != nil {
		return err
	}

	o, err = api.svc.Update(ctx.Request().Context(), o.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating organization")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *orgApi) destroy(ctx echo.Context) error {
	o, ok := ctx.Get("object").(org.Organization)
	if !ok {
		return errors.Wrap(errOrgNotFoundInCtx, "retrieving object from context")
	}

	// ctxOrg cannot delete themselves
	ctxOrg, err := getContextOrg(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context organization")
	}
	if o.ID == ctxOrg.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), o.ID); err != nil {
		return errors.Wrap(err, "deleting organization")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *orgApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func ctxOrgOrAdminMiddleware(svc *org.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxOrg, err := getContextOrg(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context organization")
			}

			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil {
				return errHttpNotFound
			}
			if id == ctxOrg.ID || ctxOrg.IsAdmin {
				if o, err := svc.GetByID(ctx.Request().Context(), id); err == nil {
					ctx.Set("object", o)
					return next(ctx)
				} else if errors.Cause(err) != org.ErrNotFound {
					return errors.Wrap(err, "finding organization by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
