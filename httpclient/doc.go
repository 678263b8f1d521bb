// Package httpclient is the outbound HTTP client used to talk to the auth
// backend. It applies base URL, default headers and per-request auth,
// classifies failures by status code, and optionally wraps every call in a
// circuit breaker.
//
//	c, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://xyz.supabase.co/auth/v1",
//	    Timeout: 10 * time.Second,
//	    Auth:    httpclient.APIKeyHeader("apikey", anonKey),
//	})
//	resp, err := c.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/user"})
//
// Errors are *Error values; IsUnavailable separates "the backend could not
// answer" from "the backend said no".
package httpclient
