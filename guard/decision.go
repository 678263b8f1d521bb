package guard

import "net/url"

// ReturnToParam is the login-URL query parameter naming the page to return to.
const ReturnToParam = "redirect_to"

// DecisionKind is the outcome of one evaluation.
type DecisionKind int

const (
	Continue DecisionKind = iota
	RedirectToLogin
	RedirectToDestination
)

func (k DecisionKind) String() string {
	switch k {
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToDestination:
		return "redirect_destination"
	default:
		return "continue"
	}
}

// Decision is Continue or a redirect to Path. ReturnTo is set only for
// login redirects.
type Decision struct {
	Kind     DecisionKind
	Path     string
	ReturnTo string
}

// IsRedirect reports whether the decision sends the caller elsewhere.
func (d Decision) IsRedirect() bool {
	return d.Kind != Continue
}

// Location renders the redirect target, or "" for Continue.
func (d Decision) Location() string {
	switch d.Kind {
	case RedirectToLogin:
		return LoginURL(d.Path, d.ReturnTo)
	case RedirectToDestination:
		return d.Path
	default:
		return ""
	}
}

// Decide combines a route class with the probe result. It is a pure
// function of its inputs.
func Decide(class RouteClass, identity *Identity, path string, cfg Config) Decision {
	switch {
	case class == Protected && identity == nil:
		return Decision{Kind: RedirectToLogin, Path: cfg.LoginPath, ReturnTo: path}
	case class == AuthOnly && identity != nil:
		return Decision{Kind: RedirectToDestination, Path: cfg.PostLoginPath}
	default:
		return Decision{Kind: Continue}
	}
}

// LoginURL sets redirect_to=returnTo on loginPath, keeping any query the
// login path already has.
//
//	LoginURL("/login", "/dashboard/settings") == "/login?redirect_to=%2Fdashboard%2Fsettings"
func LoginURL(loginPath, returnTo string) string {
	u, err := url.Parse(loginPath)
	if err != nil {
		return loginPath + "?" + url.Values{ReturnToParam: {returnTo}}.Encode()
	}
	q := u.Query()
	q.Set(ReturnToParam, returnTo)
	u.RawQuery = q.Encode()
	return u.String()
}
