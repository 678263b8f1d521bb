package guard

import "net/http"

// RelayCookies adds a Set-Cookie header for every cookie, in order, without
// altering names, values or attributes.
func RelayCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}

// applyToRequest rewrites the request Cookie header so downstream handlers
// see the relayed cookies: same-named cookies are replaced, deletions
// (MaxAge < 0) are removed.
func applyToRequest(r *http.Request, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	updates := make(map[string]*http.Cookie, len(cookies))
	for _, c := range cookies {
		updates[c.Name] = c
	}

	existing := r.Cookies()
	r.Header.Del("Cookie")
	for _, c := range existing {
		if _, replaced := updates[c.Name]; !replaced {
			r.AddCookie(c)
		}
	}
	for _, c := range cookies {
		if updates[c.Name] != c || c.MaxAge < 0 {
			continue
		}
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}
