package network

import "math/rand"

// userAgents is the pool rotated across login attempts and scrape requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// RandomUserAgent picks a browser user agent from the rotation pool.
func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// UserAgents returns a copy of the rotation pool.
func UserAgents() []string {
	return append([]string(nil), userAgents...)
}
