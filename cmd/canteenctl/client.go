package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/canteen-app/config"
	"github.com/yeremiapane/canteen-app/session"
)

var (
	errConnection    = errors.New("cannot reach backend")
	errMissingConfig = errors.New("missing configuration")
)

// envelope is the server's JSON response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// apiError is a non-2xx answer.
type apiError struct {
	Code    int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

type app struct {
	ctx      context.Context
	cfg      *config.ClientConfig
	log      *logrus.Logger
	http     *http.Client
	sessions *session.Provider

	passed, failed int
}

func newApp(ctx context.Context, cfg *config.ClientConfig, log *logrus.Logger) *app {
	return &app{
		ctx:      ctx,
		cfg:      cfg,
		log:      log,
		http:     &http.Client{Timeout: 15 * time.Second},
		sessions: session.NewProvider(session.NewFileStore(cfg.SessionDir, "")),
	}
}

func (a *app) pass(format string, args ...any) {
	a.passed++
	a.log.Infof("✔ "+format, args...)
}

func (a *app) fail(format string, args ...any) {
	a.failed++
	a.log.Errorf("✘ "+format, args...)
}

func (a *app) skip(format string, args ...any) {
	a.log.Warnf("- "+format, args...)
}

func (a *app) summary() {
	a.log.Infof("%d passed, %d failed", a.passed, a.failed)
}

// call sends one request. key is sent as the apikey header, token as a
// bearer token when set. A transport failure wraps errConnection.
func (a *app) call(ctx context.Context, method, path, key, token string, body, out any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BackendURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("apikey", key)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errConnection, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{Code: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (a *app) anon(ctx context.Context, method, path string, body, out any) error {
	return a.call(ctx, method, path, a.cfg.AnonKey, "", body, out)
}

func (a *app) service(ctx context.Context, method, path string, body, out any) error {
	return a.call(ctx, method, path, a.cfg.ServiceKey, "", body, out)
}

// staffSession returns a working staff session, reusing the stored one when
// the server still accepts its token.
func (a *app) staffSession(ctx context.Context) (*session.Session, error) {
	if err := a.sessions.Load(ctx); err != nil {
		return nil, err
	}
	if s, err := a.sessions.Current(); err == nil && s.AccessToken != "" {
		err := a.call(ctx, http.MethodGet, "/api/auth/session", a.cfg.AnonKey, s.AccessToken, nil, nil)
		if err == nil {
			return s, nil
		}
		var apiErr *apiError
		if !errors.As(err, &apiErr) {
			return nil, err
		}
	}

	if a.cfg.StaffEmail == "" || a.cfg.StaffPassword == "" {
		return nil, fmt.Errorf("%w: CANTEEN_STAFF_EMAIL and CANTEEN_STAFF_PASSWORD", errMissingConfig)
	}
	var out struct {
		Token   string          `json:"token"`
		Session session.Session `json:"session"`
	}
	body := map[string]string{"email": a.cfg.StaffEmail, "password": a.cfg.StaffPassword}
	if err := a.anon(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, fmt.Errorf("staff login: %w", err)
	}
	if !out.Session.IsStaff() {
		return nil, fmt.Errorf("%s is not a staff account", out.Session.Email)
	}
	out.Session.AccessToken = out.Token
	if err := a.sessions.Login(ctx, &out.Session); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// websocketURL turns the backend URL into the realtime endpoint.
func (a *app) websocketURL(token, table, event string) (string, error) {
	u, err := url.Parse(a.cfg.BackendURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime"
	q := url.Values{}
	q.Set("token", token)
	q.Set("apikey", a.cfg.AnonKey)
	if table != "" {
		q.Set("table", table)
	}
	if event != "" {
		q.Set("event", event)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
