package main

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/authguard/errors"
	"github.com/kbukum/authguard/guard"
	"github.com/kbukum/authguard/server"
)

const pageTemplate = `<!doctype html>
<html><head><title>%s</title></head>
<body><h1>%s</h1>%s</body></html>`

// registerPages adds a public home and about page. Any other path the guard
// classifies gets a placeholder page of its class.
func registerPages(r *gin.Engine, cfg guard.Config) {
	r.GET("/", publicPage("Home"))
	r.GET("/about", publicPage("About"))
	r.GET("/api/me", me)

	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusNotFound)
			return
		}
		switch guard.Classify(c.Request.URL.Path, cfg) {
		case guard.Protected:
			protectedPage(c)
		case guard.AuthOnly:
			authPage(c)
		default:
			c.Status(http.StatusNotFound)
		}
	})
}

func render(c *gin.Context, title, body string) {
	c.Data(http.StatusOK, "text/html; charset=utf-8",
		fmt.Appendf(nil, pageTemplate, html.EscapeString(title), html.EscapeString(title), body))
}

func publicPage(title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := "<p>Anyone can see this page.</p>"
		if id, ok := guard.IdentityFromContext(c.Request); ok {
			body += fmt.Sprintf("<p>Signed in as %s.</p>", html.EscapeString(id.Email))
		}
		render(c, title, body)
	}
}

func authPage(c *gin.Context) {
	render(c, c.Request.URL.Path, `<p>Sign in with your Supabase front end; it will return through /auth/callback.</p>`)
}

func protectedPage(c *gin.Context) {
	id, ok := guard.IdentityFromContext(c.Request)
	if !ok {
		server.RespondWithError(c, apperrors.Unauthorized("no active session"))
		return
	}
	render(c, c.Request.URL.Path, fmt.Sprintf(
		`<p>Signed in as %s (%s).</p><form method="post" action="/auth/signout"><button>Sign out</button></form>`,
		html.EscapeString(id.Email), html.EscapeString(id.UserID)))
}

// me returns the caller's identity as JSON.
func me(c *gin.Context) {
	id, ok := guard.IdentityFromContext(c.Request)
	if !ok {
		server.RespondWithError(c, apperrors.Unauthorized("no active session"))
		return
	}
	server.RespondOK(c, gin.H{
		"user_id":    id.UserID,
		"email":      id.Email,
		"role":       id.Role,
		"session_id": id.SessionID,
		"expires_at": id.ExpiresAt,
	})
}
