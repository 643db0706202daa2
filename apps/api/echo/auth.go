package echoapi

import (
	"context"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/org"
)

const (
	jwtContextKey = "orgToken"
	contextOrgKey = "org"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"` // -> ADMIN PORTAL
}

func (c Claims) OrgID() (int, error) {
	return strconv.Atoi(c.Subject)
}

func GetOrgClaims(conf *core.Config, o org.Organization, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(o.ID),
			Audience:  "Certification",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         o.Name,
		Email:        o.Email,
		IsAdmin:      o.IsAdmin,
	}
}

func authenticate(ctx context.Context, email, pwd string, svc *org.Service, conf *core.Config) (*Claims, error) {
	o, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == org.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding organization by email")
	}
	if err = o.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if o.IsActive != nil && !*o.IsActive {
		return nil, errAccountDeactivated
	}
	o, err = svc.SetLastLogin(ctx, o)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetOrgClaims(conf, o), nil
}

// GenerateToken generates a signed JWT token string representing the org Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(conf.SecretKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextOrg(ctx echo.Context, svc *org.Service, clms ...Claims) (org.Organization, error) {
	if o, ok := ctx.Get(contextOrgKey).(org.Organization); ok {
		return o, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return org.Organization{}, errors.Wrap(err, "getting context claims")
		}
	}

	id, err := claims.OrgID()
	if err != nil {
		return org.Organization{}, errUnauthorized
	}
	o, err := svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return org.Organization{}, errors.Wrap(err, "finding organization by ID")
	}
	ctx.Set(contextOrgKey, o)
	return o, nil
}

func refreshToken(ctx echo.Context, svc *org.Service, conf *core.Config) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	o, err := getContextOrg(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context organization")
	}

	// check if organization is still active
	if o.IsActive != nil && !*o.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetOrgClaims(conf, o, claims.OrigIssuedAt)
	token, err := GenerateToken(conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
