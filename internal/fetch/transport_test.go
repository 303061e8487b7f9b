package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCollyTransportSendsHeadersAndCookies(t *testing.T) {
	var seen http.Header
	var cookies []*http.Cookie
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		cookies = r.Cookies()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><p>xin chào</p></body></html>`)
	}))
	defer server.Close()

	transport, err := NewCollyTransport(TransportOptions{
		UserAgent:      "test-agent/1.0",
		AcceptLanguage: "vi,en;q=0.9",
		Referer:        server.URL + "/flashcards/lists/1/",
		Timeout:        5 * time.Second,
		CookieURL:      server.URL,
		Cookies: []*http.Cookie{
			{Name: "sessionid", Value: "abc"},
			{Name: "csrftoken", Value: "xyz"},
		},
	})
	require.NoError(t, err)

	resp, err := transport.Get(context.Background(), server.URL+"/flashcards/lists/1/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "xin chào")

	require.Equal(t, "test-agent/1.0", seen.Get("User-Agent"))
	require.Equal(t, "vi,en;q=0.9", seen.Get("Accept-Language"))
	require.Equal(t, server.URL+"/flashcards/lists/1/", seen.Get("Referer"))

	got := map[string]string{}
	for _, c := range cookies {
		got[c.Name] = c.Value
	}
	require.Equal(t, map[string]string{"sessionid": "abc", "csrftoken": "xyz"}, got)
}

func TestCollyTransportReturnsErrorStatuses(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	transport, err := NewCollyTransport(TransportOptions{UserAgent: "test-agent/1.0"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := transport.Get(context.Background(), server.URL+"/page")
		require.NoError(t, err)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}
	require.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestClientOverCollyRetriesThreeTimes(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	transport, err := NewCollyTransport(TransportOptions{UserAgent: "test-agent/1.0"})
	require.NoError(t, err)
	client := NewClient(transport, WithBackoff(time.Millisecond))

	_, err = client.Fetch(context.Background(), server.URL+"/flashcards/lists/1/")
	require.Error(t, err)
	require.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestRobotsAllowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	transport, err := NewCollyTransport(TransportOptions{UserAgent: "test-agent/1.0"})
	require.NoError(t, err)
	client := NewClient(transport)

	ok, err := client.RobotsAllowed(context.Background(), server.URL+"/flashcards/lists/1/", "test-agent/1.0")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.RobotsAllowed(context.Background(), server.URL+"/private/lists/1/", "test-agent/1.0")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = client.RobotsAllowed(context.Background(), "/relative", "test-agent/1.0")
	require.Error(t, err)
}

func TestRobotsMissingAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	transport, err := NewCollyTransport(TransportOptions{UserAgent: "test-agent/1.0"})
	require.NoError(t, err)

	ok, err := NewClient(transport).RobotsAllowed(context.Background(), server.URL+"/anything", "test-agent/1.0")
	require.NoError(t, err)
	require.True(t, ok)
}
