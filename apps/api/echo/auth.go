package echoapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/coffeeduty/core"
)

const (
	contextClaimsKey = "claims"
	bearerPrefix     = "Bearer "

	schedulerTokenHeader = "X-Scheduler-Token"
	schedulerTokenParam  = "token"

	adminSubject      = "admin"
	gmailStateSubject = "gmail-oauth"
	gmailStateTTL     = 10 * time.Minute
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin,omitempty"`
}

type authenticator struct {
	conf    core.AuthConfig
	issuer  string
	nowFunc func() time.Time
}

func newAuthenticator(conf core.AuthConfig, issuer string) *authenticator {
	return &authenticator{conf: conf, issuer: issuer, nowFunc: time.Now}
}

func (a *authenticator) newClaims(subject string, ttl time.Duration, isAdmin bool) *Claims {
	now := a.nowFunc()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		IsAdmin: isAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(a.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) parseToken(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(*jwt.Token) (interface{}, error) { return []byte(a.conf.SecretKey), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.nowFunc),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// login checks password against the configured bcrypt hash. No hash disables the admin.
func (a *authenticator) login(password string) (string, error) {
	if a.conf.AdminPasswordHash == "" {
		return "", errAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.conf.AdminPasswordHash), []byte(password)); err != nil {
		return "", errAuthenticationFailed
	}
	return a.GenerateToken(a.newClaims(adminSubject, a.conf.JWTExpirationDelta, true))
}

// adminMiddleware requires a valid admin Bearer token.
func (a *authenticator) adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return errUnauthorized
			}
			claims, err := a.parseToken(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				return errors.Wrap(errUnauthorized, err.Error())
			}
			if !claims.IsAdmin {
				return errHttpForbidden
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

// schedulerMiddleware guards the scheduler trigger. An empty configured token rejects
// every request.
func (a *authenticator) schedulerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := ctx.Request().Header.Get(schedulerTokenHeader)
			if token == "" {
				token = ctx.QueryParam(schedulerTokenParam)
			}
			expected := a.conf.SchedulerToken
			if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// gmailState is the short-lived OAuth state handed to the Google consent page.
func (a *authenticator) gmailState() (string, error) {
	return a.GenerateToken(a.newClaims(gmailStateSubject, gmailStateTTL, false))
}

func (a *authenticator) checkGmailState(state string) error {
	claims, err := a.parseToken(state)
	if err != nil {
		return err
	}
	if claims.Subject != gmailStateSubject {
		return errors.New("unexpected state subject")
	}
	return nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

// Handlers

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type authApi struct {
	auth     *authenticator
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, auth *authenticator, validate *validator.Validate) {
	api := authApi{auth: auth, validate: validate}
	g.POST("/auth/login", api.login)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	token, err := api.auth.login(data.Password)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}
