package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/certificate"
	"github.com/shieldhq/shield/core/org"
	"github.com/shieldhq/shield/core/scoring"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "organization not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// translator is set once at startup; the error handler needs it to translate
// field errors.
var translator ut.Translator

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *scoring.IncompleteSubmissionError:
			code = http.StatusBadRequest
			message = echo.Map{"error": origErr.Error(), "missing": origErr.Missing}
		case *scoring.UnknownOptionError:
			code = http.StatusBadRequest
			message = origErr.Error()
		case *scoring.InvalidCatalogError:
			code = http.StatusConflict
			message = origErr.Error()
		case *certificate.DuplicateNumberError:
			code = http.StatusConflict
			message = origErr.Error()
		default:
			switch origErr {
			case org.ErrNotFound, scoring.ErrNotFound, scoring.ErrResultNotFound,
				catalog.ErrQuestionNotFound, catalog.ErrAxisNotFound, certificate.ErrNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			case scoring.ErrStatusConflict, certificate.ErrDuplicateNumber:
				code = http.StatusConflict
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var o org.Organization
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					o.ID, _ = claims.OrgID()
					o.Name = claims.Name
					o.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), o)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
