// Package api is the HTTP client for the reading-plan backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 4 << 20
	userAgent       = "versescout"
)

// Config wires transport options into the client.
type Config struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Jar        http.CookieJar
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client talks to the backend contract. Credentials live in the transport:
// the cookie jar and, when configured, a bearer token.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// New validates the configuration and returns a Client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("api: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: unsupported scheme %q", base.Scheme)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   base,
		http:   pickHTTPClient(cfg),
		logger: logger.With("component", "api"),
	}, nil
}

func pickHTTPClient(cfg Config) *http.Client {
	var client http.Client
	if cfg.HTTPClient != nil {
		client = *cfg.HTTPClient
	} else {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = http.Client{Timeout: timeout}
	}
	if cfg.Jar != nil {
		client.Jar = cfg.Jar
	}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		base := client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		client.Transport = &bearerTransport{token: token, base: base}
	}
	return &client
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

// BaseURL returns the backend root the client was configured with.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// LoginURL is where the identity provider flow starts.
func (c *Client) LoginURL() string {
	return c.endpoint("/auth/login")
}

// Identity fetches the signed-in user.
func (c *Client) Identity(ctx context.Context) (Identity, error) {
	var identity Identity
	if err := c.do(ctx, http.MethodGet, "/identity", nil, &identity); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// EndSession asks the backend to end the current session.
func (c *Client) EndSession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/session/end", nil, nil)
}

// ListPlans returns every plan of the signed-in user.
func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := c.do(ctx, http.MethodGet, "/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CreatePlan creates a plan; the backend makes it the active one.
func (c *Client) CreatePlan(ctx context.Context, topic string, durationDays int) (Plan, error) {
	var plan Plan
	body := CreatePlanRequest{Topic: topic, DurationDays: durationDays}
	if err := c.do(ctx, http.MethodPost, "/plans", body, &plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// ActivatePlan makes id the single active plan.
func (c *Client) ActivatePlan(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/plans/"+url.PathEscape(id)+"/activate", nil, nil)
}

// DeletePlan removes an inactive plan.
func (c *Client) DeletePlan(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/plans/"+url.PathEscape(id), nil, nil)
}

// Today returns today's passage for the active plan.
func (c *Client) Today(ctx context.Context) (DailyVerse, error) {
	var verse DailyVerse
	if err := c.do(ctx, http.MethodGet, "/plans/today", nil, &verse); err != nil {
		return DailyVerse{}, err
	}
	return verse, nil
}

// Chat asks a question about verse.
func (c *Client) Chat(ctx context.Context, verse DailyVerse, question string) (ChatReply, error) {
	var reply ChatReply
	body := ChatRequest{Verse: verse, Question: question}
	if err := c.do(ctx, http.MethodPost, "/chat", body, &reply); err != nil {
		return ChatReply{}, err
	}
	return reply, nil
}

// ResetChat clears the server-side conversation and returns its acknowledgement.
func (c *Client) ResetChat(ctx context.Context) (string, error) {
	var reply MessageReply
	if err := c.do(ctx, http.MethodPost, "/chat/reset", nil, &reply); err != nil {
		return "", err
	}
	return reply.Message, nil
}

// Visit performs a GET on target with the client's transport so any cookies
// set by the response land in the jar. Used to complete a dev sign-in.
func (c *Client) Visit(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindOf(err), Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, body)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "err", err)
		return &Error{Kind: KindOf(err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &Error{Status: resp.StatusCode, Kind: KindUnavailable, Err: err}
	}
	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(started))

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}
