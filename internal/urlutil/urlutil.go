package urlutil

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func ListURL(base string, listID int) string {
	return fmt.Sprintf("%s/flashcards/lists/%d/", strings.TrimRight(base, "/"), listID)
}

// PageURL returns listURL for the first page and listURL?page=n otherwise.
func PageURL(listURL string, page int) string {
	if page <= 1 {
		return listURL
	}
	parsed, err := url.Parse(listURL)
	if err != nil {
		return fmt.Sprintf("%s?page=%d", listURL, page)
	}
	query := parsed.Query()
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// Resolve joins ref onto base the way a browser would. Empty or broken refs give "".
func Resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsedRef, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	parsedBase, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return parsedBase.ResolveReference(parsedRef).String()
}

func RecordKey(parts ...string) string {
	hash := md5.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", hash)
}

// Origin returns scheme://host of rawURL.
func Origin(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", rawURL)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}
