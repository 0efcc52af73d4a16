package echo

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.pilab.hu/loginbroker/internal/broker"
	"go.pilab.hu/loginbroker/log"
)

// SessionCookieName is the cookie the callback handler sets on success. The
// surrounding application owns everything else about session transport.
const SessionCookieName = "lb_session"

// LoginAPI exposes the broker's two operations over HTTP.
type LoginAPI struct {
	broker       *broker.LoginBroker
	postLoginURL string
	failureURL   string
	logger       log.Logger
}

// NewLoginAPI creates the login HTTP API.
func NewLoginAPI(b *broker.LoginBroker, postLoginURL, failureURL string, logger log.Logger) *LoginAPI {
	return &LoginAPI{
		broker:       b,
		postLoginURL: postLoginURL,
		failureURL:   failureURL,
		logger:       logger,
	}
}

// RegisterRoutes registers the login routes.
func (a *LoginAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/login/:provider", a.BeginLoginHandler)
	e.GET("/login/:provider/callback", a.CallbackHandler)
}

// BeginLoginHandler starts a login attempt and redirects the browser to the
// provider's authorization endpoint.
func (a *LoginAPI) BeginLoginHandler(c echo.Context) error {
	providerID := c.Param("provider")

	authURL, err := a.broker.BeginLogin(c.Request().Context(), providerID)
	if err != nil {
		if errors.Is(err, broker.ErrUnknownProvider) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error":   "unknown_provider",
				"message": "Unknown login provider.",
			})
		}
		return c.Redirect(http.StatusFound, a.failureRedirect(broker.Kind(err)))
	}
	return c.Redirect(http.StatusFound, authURL)
}

// CallbackHandler finishes a login attempt from the provider redirect. On
// success it sets the session cookie and redirects to the post-login URL;
// on failure it redirects to the failure URL with the error kind attached.
func (a *LoginAPI) CallbackHandler(c echo.Context) error {
	providerID := c.Param("provider")
	ctx := c.Request().Context()

	// Providers report user denial and their own errors via the error
	// query parameter; there is nothing to exchange in that case.
	if oauthErr := c.QueryParam("error"); oauthErr != "" {
		a.logger.Warn(ctx, "provider returned an error on callback", map[string]interface{}{
			"provider": providerID,
			"error":    oauthErr,
			"desc":     c.QueryParam("error_description"),
		})
		return c.Redirect(http.StatusFound, a.failureRedirect("provider_error"))
	}

	session, err := a.broker.CompleteLogin(ctx, providerID, c.QueryParams())
	if err != nil {
		return c.Redirect(http.StatusFound, a.failureRedirect(broker.Kind(err)))
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		Secure:   c.Request().TLS != nil,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, a.postLoginURL)
}

// failureRedirect appends the error kind to the configured failure URL.
func (a *LoginAPI) failureRedirect(kind string) string {
	u, err := url.Parse(a.failureURL)
	if err != nil {
		return a.failureURL
	}
	q := u.Query()
	q.Set("error", kind)
	u.RawQuery = q.Encode()
	return u.String()
}
