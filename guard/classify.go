package guard

import "strings"

// RouteClass is the category of a request path.
type RouteClass int

const (
	Neither RouteClass = iota
	Protected
	AuthOnly
)

func (c RouteClass) String() string {
	switch c {
	case Protected:
		return "protected"
	case AuthOnly:
		return "auth_only"
	default:
		return "neither"
	}
}

// Classify returns Protected if path starts with any protected prefix,
// AuthOnly if it equals any auth-only path, and Neither otherwise. Protected
// is checked first. No normalization is applied: "/Dashboard" and
// "/login/" are matched as written.
func Classify(path string, cfg Config) RouteClass {
	for _, p := range cfg.ProtectedPrefixes {
		if strings.HasPrefix(path, p) {
			return Protected
		}
	}
	for _, p := range cfg.AuthOnlyPrefixes {
		if path == p {
			return AuthOnly
		}
	}
	return Neither
}

func skipped(path string, cfg Config) bool {
	for _, p := range cfg.SkipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
