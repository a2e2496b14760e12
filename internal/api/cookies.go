package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
)

// KV is the persistence surface the cookie jar needs.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// SessionCookiesKey is where PersistentJar keeps its cookies.
const SessionCookiesKey = "session.cookies"

type storedCookie struct {
	URL   string `json:"url"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PersistentJar is a cookie jar whose cookies survive restarts through a KV
// store. Only name and value are kept; the server stays responsible for
// expiring the session.
type PersistentJar struct {
	mu    sync.Mutex
	inner *cookiejar.Jar
	kv    KV
	urls  map[string]*url.URL
}

// NewPersistentJar loads previously saved cookies from kv.
func NewPersistentJar(kv KV) (*PersistentJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	jar := &PersistentJar{inner: inner, kv: kv, urls: map[string]*url.URL{}}
	raw, ok, err := kv.Get(SessionCookiesKey)
	if err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	if !ok || raw == "" {
		return jar, nil
	}
	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		slog.Warn("discarding unreadable cookie store", "err", err)
		return jar, nil
	}
	for _, c := range stored {
		u, err := url.Parse(c.URL)
		if err != nil {
			continue
		}
		jar.urls[c.URL] = u
		inner.SetCookies(u, []*http.Cookie{{Name: c.Name, Value: c.Value, Path: "/"}})
	}
	return jar, nil
}

// SetCookies implements http.CookieJar.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
	origin := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	j.urls[origin.String()] = origin
	if err := j.persistLocked(); err != nil {
		slog.Warn("persist cookies failed", "err", err)
	}
}

// Cookies implements http.CookieJar.
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// Clear forgets every cookie, in memory and on disk.
func (j *PersistentJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	inner, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.inner = inner
	j.urls = map[string]*url.URL{}
	return j.kv.Remove(SessionCookiesKey)
}

func (j *PersistentJar) persistLocked() error {
	var stored []storedCookie
	for key, u := range j.urls {
		for _, c := range j.inner.Cookies(u) {
			stored = append(stored, storedCookie{URL: key, Name: c.Name, Value: c.Value})
		}
	}
	if len(stored) == 0 {
		return j.kv.Remove(SessionCookiesKey)
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return j.kv.Set(SessionCookiesKey, string(data))
}
