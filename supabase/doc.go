// Package supabase implements guard.Backend on top of Supabase Auth
// (GoTrue). Sessions live in browser cookies using the same layout as the
// @supabase/ssr JavaScript helpers, so a Go server can sit in front of, or
// next to, a JavaScript front end that signs users in:
//
//	sb-<project-ref>-auth-token      = base64-<base64url(session JSON)>
//	sb-<project-ref>-auth-token.0..N = chunks of the above when it is long
//
// GetUser refreshes sessions that are about to expire and verifies the
// access token either remotely (GET /auth/v1/user), with the project's JWT
// secret, or against the project's JWKS. A rejected session is reported as
// signed out together with cookies that delete it; an unreachable backend
// is reported as an error so the guard can fail open.
package supabase
