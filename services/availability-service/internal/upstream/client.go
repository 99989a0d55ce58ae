// Package upstream talks to the clinic platform API that owns appointments and catalog data.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/glowbook/clinicavail/libs/httpx"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const TenantHeader = "X-Tenant-Id"

// ErrPageLimit is returned when a listing has more pages than the client will follow.
// A truncated booking list would show booked times as free, so it is never returned.
var ErrPageLimit = errors.New("upstream listing exceeds page limit")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	PageSize int
	MaxPages int
}

type Client struct {
	baseURL  string
	token    string
	pageSize int
	maxPages int
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// ListBookings returns every appointment of staffID dated within [from, to], following
// pagination. Cancelled appointments are included; the grid builder ignores them.
func (c *Client) ListBookings(ctx context.Context, tenantID, staffID string, from, to time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for page := 1; ; page++ {
		if page > c.maxPages {
			return nil, fmt.Errorf("%w: more than %d pages of appointments", ErrPageLimit, c.maxPages)
		}
		q := url.Values{}
		q.Set("staff_id", staffID)
		q.Set("start_date", timeutil.FormatDate(from))
		q.Set("end_date", timeutil.FormatDate(to))
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(c.pageSize))

		var env envelope[wireBooking]
		if err := c.getJSON(ctx, tenantID, "/appointments", q, &env); err != nil {
			return nil, err
		}
		for _, w := range env.Items {
			out = append(out, w.toModel())
		}
		if len(env.Items) == 0 || page >= env.Pages {
			break
		}
	}
	return out, nil
}

func (c *Client) GetService(ctx context.Context, tenantID, id string) (model.Service, error) {
	var w wireService
	if err := c.getJSON(ctx, tenantID, "/services/"+url.PathEscape(id), nil, &w); err != nil {
		return model.Service{}, err
	}
	return w.toModel(), nil
}

func (c *Client) GetOutlet(ctx context.Context, tenantID, id string) (model.Outlet, error) {
	var w wireOutlet
	if err := c.getJSON(ctx, tenantID, "/outlets/"+url.PathEscape(id), nil, &w); err != nil {
		return model.Outlet{}, err
	}
	return w.toModel(), nil
}

func (c *Client) GetStaff(ctx context.Context, tenantID, id string) (model.StaffSummary, error) {
	var w wireStaff
	if err := c.getJSON(ctx, tenantID, "/staff/"+url.PathEscape(id), nil, &w); err != nil {
		return model.StaffSummary{}, err
	}
	return w.toModel(), nil
}

func (c *Client) GetTenant(ctx context.Context, tenantID string) (model.Tenant, error) {
	var w wireTenant
	if err := c.getJSON(ctx, tenantID, "/tenants/"+url.PathEscape(tenantID), nil, &w); err != nil {
		return model.Tenant{}, err
	}
	return w.toModel(), nil
}

func (c *Client) getJSON(ctx context.Context, tenantID, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if tenantID != "" {
		req.Header.Set(TenantHeader, tenantID)
	}
	if id := httpx.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(httpx.RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed", "path", path, "err", err)
		return fmt.Errorf("upstream %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream request", "path", path, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("upstream %s: decode: %w", path, err)
	}
	return nil
}
