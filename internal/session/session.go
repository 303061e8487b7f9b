package session

import (
	"net/http"
	"strings"
)

// Cookies is an ordered cookie set parsed from a "k=v; k2=v2" string.
type Cookies []*http.Cookie

// ParseCookieString splits raw on ';' and keeps every "key=value" fragment with
// a non-empty key. A repeated key overwrites the earlier value in place.
func ParseCookieString(raw string) Cookies {
	var cookies Cookies
	index := make(map[string]int)

	for _, part := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		if i, seen := index[key]; seen {
			cookies[i].Value = value
			continue
		}
		index[key] = len(cookies)
		cookies = append(cookies, &http.Cookie{Name: key, Value: value})
	}
	return cookies
}

func (c Cookies) Map() map[string]string {
	out := make(map[string]string, len(c))
	for _, cookie := range c {
		out[cookie.Name] = cookie.Value
	}
	return out
}

func (c Cookies) Names() []string {
	names := make([]string, 0, len(c))
	for _, cookie := range c {
		names = append(names, cookie.Name)
	}
	return names
}
