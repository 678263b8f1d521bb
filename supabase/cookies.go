package supabase

import (
	"net/http"
	"strconv"
	"strings"
)

// maxChunkSize is the longest value written to a single cookie.
const maxChunkSize = 3180

// readCookie returns the value stored under name, joining name.0, name.1 …
// when the value was split.
func readCookie(cookies []*http.Cookie, name string) (string, bool) {
	byName := make(map[string]string, len(cookies))
	for _, c := range cookies {
		byName[c.Name] = c.Value
	}
	if v, ok := byName[name]; ok && v != "" {
		return v, true
	}

	var b strings.Builder
	for i := 0; ; i++ {
		v, ok := byName[chunkName(name, i)]
		if !ok {
			break
		}
		b.WriteString(v)
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func chunkName(name string, i int) string {
	return name + "." + strconv.Itoa(i)
}

// chunkIndex returns i when cookie is name.i.
func chunkIndex(cookie, name string) (int, bool) {
	rest, ok := strings.CutPrefix(cookie, name+".")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func splitValue(value string) []string {
	if len(value) <= maxChunkSize {
		return []string{value}
	}
	var chunks []string
	for len(value) > 0 {
		n := min(maxChunkSize, len(value))
		chunks = append(chunks, value[:n])
		value = value[n:]
	}
	return chunks
}

// writeCookies returns the cookies that store value under name, plus
// deletions for any of the request's cookies left over from a previous
// layout.
func writeCookies(name, value string, opts CookieOptions, existing []*http.Cookie) []*http.Cookie {
	chunks := splitValue(value)
	out := make([]*http.Cookie, 0, len(chunks)+1)
	if len(chunks) == 1 {
		out = append(out, newCookie(name, value, opts))
	} else {
		for i, chunk := range chunks {
			out = append(out, newCookie(chunkName(name, i), chunk, opts))
		}
	}

	for _, c := range existing {
		if c.Name == name && len(chunks) > 1 {
			out = append(out, deleteCookie(c.Name, opts))
			continue
		}
		if i, ok := chunkIndex(c.Name, name); ok && (len(chunks) == 1 || i >= len(chunks)) {
			out = append(out, deleteCookie(c.Name, opts))
		}
	}
	return out
}

// clearCookies deletes every cookie in existing that holds part of name.
func clearCookies(name string, opts CookieOptions, existing []*http.Cookie) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range existing {
		if _, chunk := chunkIndex(c.Name, name); c.Name == name || chunk {
			out = append(out, deleteCookie(c.Name, opts))
		}
	}
	return out
}

func newCookie(name, value string, opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: opts.HTTPOnly,
		SameSite: opts.sameSite(),
	}
}

func deleteCookie(name string, opts CookieOptions) *http.Cookie {
	c := newCookie(name, "", opts)
	c.MaxAge = -1
	return c
}
