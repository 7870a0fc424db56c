package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nightnovels/go-auth/middleware/jwtware"
)

// RouteAuthenticator wires the Authenticator into cookie based HTTP
// transport. The access and refresh tokens travel in separate cookies so the
// refresh secret is not replayed on every request.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a *RouteAuthenticator) accessCookieName() string {
	return a.cfg.GetContextKey()
}

func (a *RouteAuthenticator) refreshCookieName() string {
	return a.cfg.GetContextKey() + "_refresh"
}

// ProtectedRoute gates a route on a valid access token. When the wrapped
// Authenticator exposes its TokenService, verification goes through it and
// the route sees structured claims; otherwise jwtware falls back to plain
// signature checks.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	var validator jwtware.TokenValidator
	if provider, ok := a.auth.(interface{ TokenService() TokenService }); ok {
		ts := provider.TokenService()
		validator = jwtware.ValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
			claims, err := ts.VerifyAccessToken(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		})
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return jwtware.New(jwtware.Config{
			ErrorHandler:   errorHandler,
			TokenValidator: validator,
			SigningKey: jwtware.SigningKey{
				Key:    []byte(cfg.GetAccessSigningKey()),
				JWTAlg: cfg.GetSigningMethod(),
			},
			AuthScheme:  cfg.GetAuthScheme(),
			ContextKey:  cfg.GetContextKey(),
			TokenLookup: cfg.GetTokenLookup(),
		})
	}
}

// Login authenticates the payload and installs both token cookies
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (*LoginResult, error) {
	result, err := a.auth.Login(
		ctx.Context(),
		payload.GetIdentifier(),
		payload.GetPassword(),
		payload.GetExtendedSession(),
	)
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	refreshDuration := a.cfg.GetRefreshTokenDuration()
	if payload.GetExtendedSession() {
		refreshDuration = a.cfg.GetExtendedRefreshDuration()
	}

	a.setCookie(ctx, a.accessCookieName(), result.AccessToken, a.cfg.GetAccessTokenDuration())
	a.setCookie(ctx, a.refreshCookieName(), result.RefreshToken, refreshDuration)

	return result, nil
}

// Refresh exchanges the refresh cookie for a fresh access cookie
func (a *RouteAuthenticator) Refresh(ctx router.Context) error {
	raw := ctx.Cookies(a.refreshCookieName())
	if raw == "" {
		return ErrTokenMalformed
	}

	accessToken, err := a.auth.Refresh(ctx.Context(), raw)
	if err != nil {
		a.Logger.Error("Refresh error: %s", err)
		return err
	}

	a.setCookie(ctx, a.accessCookieName(), accessToken, a.cfg.GetAccessTokenDuration())
	return nil
}

// Logout clears both token cookies. Nothing is revoked server side; issued
// tokens run out their lifetime.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.accessCookieName())
	a.cookieDel(ctx, a.refreshCookieName())
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *goerrors.Error

		if goerrors.Is(err, jwt.ErrTokenExpired) || hasTextCode(err, TextCodeTokenExpired) {
			richErr = ErrTokenExpired
		} else if !goerrors.As(err, &richErr) {
			richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "Invalid authentication token").
				WithCode(goerrors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) setCookie(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "An unexpected authentication error").
			WithCode(goerrors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error %s (%s) on %s, redirecting to login",
		richErr.Message,
		richErr.TextCode,
		c.OriginalURL(),
	)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect("/login", statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler: %s category=%s details=%s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}
