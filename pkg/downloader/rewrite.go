package downloader

import (
	"net/url"
	"strings"
)

// Rewrite maps a product href onto the URL that actually serves the bytes.
// It receives a copy and may modify it in place.
type Rewrite func(u *url.URL)

// NoRewrite leaves hrefs untouched.
func NoRewrite(*url.URL) {}

// SubdomainRewrite replaces every host label equal to from with to, so
// catalogue.example.eu becomes download.example.eu. Paths, query strings and
// partial label matches are left alone.
func SubdomainRewrite(from, to string) Rewrite {
	if from == "" || from == to {
		return NoRewrite
	}
	return func(u *url.URL) {
		host, port := u.Hostname(), u.Port()
		labels := strings.Split(host, ".")
		changed := false
		for i, l := range labels {
			if strings.EqualFold(l, from) {
				labels[i] = to
				changed = true
			}
		}
		if !changed {
			return
		}
		u.Host = strings.Join(labels, ".")
		if port != "" {
			u.Host += ":" + port
		}
	}
}

// DefaultRewrite sends catalogue hrefs to the download service.
var DefaultRewrite = SubdomainRewrite("catalogue", "download")
