package supabase

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authguard/guard"
	"github.com/kbukum/authguard/logger"
)

// Handlers serves the OAuth callback and sign-out endpoints.
type Handlers struct {
	client        *Client
	loginPath     string
	postLoginPath string
	log           *logger.Logger
}

// NewHandlers creates the handlers. Redirect targets come from routes, which
// should be the configuration the guard runs with.
func NewHandlers(client *Client, routes guard.Config, log *logger.Logger) *Handlers {
	routes.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handlers{
		client:        client,
		loginPath:     routes.LoginPath,
		postLoginPath: routes.PostLoginPath,
		log:           log.WithComponent("supabase"),
	}
}

// Register mounts GET /auth/callback and POST /auth/signout.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/auth/callback", h.Callback)
	r.POST("/auth/signout", h.SignOut)
}

// Callback exchanges ?code= for a session and redirects to ?next= when it is
// a local path, otherwise to the post-login path. Any failure lands on the
// login page.
func (h *Handlers) Callback(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Query("code")
	if code == "" {
		if e := c.Query("error"); e != "" {
			h.log.WithContext(ctx).Warn("OAuth provider returned an error", logger.Fields(
				logger.FieldError, e,
				"description", c.Query("error_description"),
			))
		}
		c.Redirect(http.StatusTemporaryRedirect, h.loginPath)
		return
	}

	_, cookies, err := h.client.ExchangeCodeForSession(ctx, code, c.Request.Cookies())
	if err != nil {
		h.log.WithContext(ctx).Warn("Code exchange failed", logger.Fields(logger.FieldError, err.Error()))
		c.Redirect(http.StatusTemporaryRedirect, h.loginPath)
		return
	}

	guard.RelayCookies(c.Writer, cookies)
	dest := h.postLoginPath
	if next, ok := localPath(c.Query("next")); ok {
		dest = next
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusTemporaryRedirect, dest)
}

// SignOut revokes the session, clears its cookies and redirects to login.
func (h *Handlers) SignOut(c *gin.Context) {
	ctx := c.Request.Context()
	cookies, err := h.client.SignOut(ctx, c.Request.Cookies())
	if err != nil {
		h.log.WithContext(ctx).Warn("Session revocation failed, clearing cookies anyway", logger.Fields(logger.FieldError, err.Error()))
	}
	guard.RelayCookies(c.Writer, cookies)
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusSeeOther, h.loginPath)
}

// localPath accepts only same-origin absolute paths.
func localPath(next string) (string, bool) {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "", false
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return u.RequestURI(), true
}
