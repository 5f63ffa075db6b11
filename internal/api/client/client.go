// Package client talks to the courseware REST API. A *Client is the remote
// half of hierarchy.Store, the course source of player.Session and a
// server-backed position.Store.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/logger"
)

// ErrUnauthorized is returned for 401 and 403 answers.
var ErrUnauthorized = errors.New("unauthorized")

type Client struct {
	rc  *resty.Client
	log *logger.Logger
}

type options struct {
	token   string
	timeout time.Duration
	hc      *http.Client
	log     *logger.Logger
}

// Option configures New. Options are collected first and applied together,
// so their order does not matter.
type Option func(*options)

func WithToken(token string) Option { return func(o *options) { o.token = token } }

func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithHTTPClient sets the transport-level client, e.g. httptest's.
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.hc = hc } }

func WithLogger(l *logger.Logger) Option { return func(o *options) { o.log = l } }

func New(baseURL string, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	rc := resty.New()
	if o.hc != nil {
		rc = resty.NewWithClient(o.hc)
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).SetHeader("Accept", "application/json")
	if o.token != "" {
		rc.SetAuthToken(o.token)
	}
	if o.timeout > 0 {
		rc.SetTimeout(o.timeout)
	}
	return &Client{rc: rc, log: logger.OrNop(o.log).With("service", "APIClient")}
}

// SetToken swaps the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) { c.rc.SetAuthToken(token) }

type apiError struct {
	Error string `json:"error"`
}

// call is one API round trip. resource and id name the thing a 404 refers to.
type call struct {
	op       string
	method   string
	path     string
	params   map[string]string
	body     any
	out      any
	resource string
	id       string
}

func (c *Client) do(ctx context.Context, k call) error {
	req := c.rc.R().SetContext(ctx).SetError(&apiError{})
	if k.params != nil {
		req.SetPathParams(k.params)
	}
	if k.body != nil {
		req.SetBody(k.body)
	}
	if k.out != nil {
		req.SetResult(k.out)
	}
	start := time.Now()
	resp, err := req.Execute(k.method, k.path)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", k.op, ctx.Err())
		}
		c.log.Warn("request failed", "op", k.op, "error", err)
		return &course.TransportError{Op: k.op, Err: err}
	}
	c.log.Debug("request", "op", k.op, "status", resp.StatusCode(), "duration", time.Since(start))
	if !resp.IsError() {
		return nil
	}
	return statusError(k, resp)
}

func statusError(k call, resp *resty.Response) error {
	msg := strings.TrimSpace(resp.String())
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		msg = e.Error
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return &course.NotFoundError{Resource: k.resource, ID: k.id}
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity || code == http.StatusConflict:
		return &course.ValidationError{Reason: msg}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %s", k.op, ErrUnauthorized, msg)
	default:
		return &course.TransportError{Op: k.op, Status: code, Err: errors.New(msg)}
	}
}

// Login exchanges credentials for a token and starts using it.
func (c *Client) Login(ctx context.Context, username, password, role string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.do(ctx, call{
		op: "login", method: http.MethodPost, path: "/auth/login",
		body: map[string]string{"username": username, "password": password, "role": role},
		out:  &out,
	})
	if err != nil {
		return "", err
	}
	c.SetToken(out.AccessToken)
	return out.AccessToken, nil
}

func (c *Client) CreateCourse(ctx context.Context, title string) (course.Course, error) {
	var out course.Course
	err := c.do(ctx, call{
		op: "create course", method: http.MethodPost, path: "/courses",
		body: map[string]string{"title": title}, out: &out,
	})
	return out, err
}

// GetCourse returns the course with modules and their content.
func (c *Client) GetCourse(ctx context.Context, courseID string) (course.Course, error) {
	var out course.Course
	err := c.do(ctx, call{
		op: "get course", method: http.MethodGet, path: "/courses/{courseId}",
		params: map[string]string{"courseId": courseID}, out: &out,
		resource: "course", id: courseID,
	})
	return out, err
}
