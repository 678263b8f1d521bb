// Package guard decides, for each inbound request, whether to let it
// through, send the caller to the login page, or send an already signed-in
// caller away from a login-style page.
//
// Each evaluation runs four steps:
//
//  1. Classify the path as Protected (prefix match), AuthOnly (exact
//     match) or Neither.
//  2. Probe the Backend for the caller's identity using the request cookies.
//     Probe failures count as "no identity" and are never fatal.
//  3. Decide: Protected without identity redirects to the login path with
//     redirect_to set to the original path; AuthOnly with identity
//     redirects to the post-login path; everything else continues.
//  4. Relay any cookies the backend wants set (refreshed sessions) onto
//     whichever response goes out, and onto the forwarded request.
//
// Guard.Middleware plugs into any net/http stack; Guard.Gin into a Gin
// engine. Guard.Evaluate returns the outcome without writing anything.
package guard
