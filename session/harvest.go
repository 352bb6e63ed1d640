package session

import (
	"strings"

	"github.com/offtube/offtube/credential"
)

// Harvest keeps cookies whose domain contains one of domains and normalizes them:
// leading-dot domain, absolute path, integral expiry. Cookies with an empty
// domain, name or value are dropped. Later duplicates replace earlier ones.
func Harvest(raw []RawCookie, domains []string) []credential.Cookie {
	var (
		out   []credential.Cookie
		index = make(map[string]int)
	)

	for _, c := range raw {
		if c.Domain == "" || c.Name == "" || c.Value == "" {
			continue
		}

		domain := strings.ToLower(strings.TrimPrefix(c.Domain, "."))
		if !containsAny(domain, domains) {
			continue
		}

		path := c.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		var expires int64
		if c.Expires > 0 {
			expires = int64(c.Expires)
		}

		cookie := credential.Cookie{
			Domain:   "." + domain,
			HTTPOnly: c.HTTPOnly,
			Path:     path,
			Secure:   c.Secure,
			Expires:  expires,
			Name:     c.Name,
			Value:    c.Value,
		}

		id := cookie.Domain + "\x00" + cookie.Path + "\x00" + cookie.Name
		if i, ok := index[id]; ok {
			out[i] = cookie
			continue
		}

		index[id] = len(out)
		out = append(out, cookie)
	}

	return out
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if f != "" && strings.Contains(s, strings.ToLower(f)) {
			return true
		}
	}
	return false
}
