package fetch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/temoto/robotstxt"
)

// RobotsAllowed fetches /robots.txt for pageURL's host once (no retries) and
// tests the page path against the group for userAgent. A missing or
// unreachable robots.txt allows everything.
func (c *Client) RobotsAllowed(ctx context.Context, pageURL, userAgent string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, err
	}
	if u.Scheme == "" || u.Host == "" {
		return false, fmt.Errorf("url %q has no scheme or host", pageURL)
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	resp, err := c.transport.Get(ctx, robotsURL)
	if err != nil {
		c.logger.Warn("robots.txt unavailable, ignoring", "url", robotsURL, "err", err)
		return true, nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		c.logger.Warn("robots.txt unparsable, ignoring", "url", robotsURL, "err", err)
		return true, nil
	}

	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, userAgent), nil
}
