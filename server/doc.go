// Package server runs the authguard HTTP surface: a Gin engine behind a
// net/http middleware chain, served with HTTP/2 cleartext support.
//
// Server-level middleware (see server/middleware) wraps every route, which
// is where the route guard belongs: it has to see every request path,
// including ones no Gin route matches.
//
//	srv := server.New(cfg, log)
//	srv.Use(middleware.Recovery(log), middleware.RequestID(), g.Middleware())
//	srv.RegisterHealth("authguard", version, backend)
//	srv.Engine().GET("/dashboard", dashboard)
package server
