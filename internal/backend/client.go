package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://ahlanapi.pythonanywhere.com"

	defaultTimeout = 15 * time.Second
	maxBodySize    = 4 << 20
	maxPages       = 100
)

type Config struct {
	BaseURL string
	// Timeout bounds each request. Zero means 15s.
	Timeout time.Duration
	// RequestsPerSecond limits outgoing calls. Zero disables the limiter.
	RequestsPerSecond float64
	Burst             int
}

// Client is the HTTP implementation of Backend.
type Client struct {
	baseURL *url.URL
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewClient(cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: base,
		timeout: cfg.Timeout,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: limiter,
		logger:  logger.Named("backend"),
		metrics: m,
	}, nil
}

func (c *Client) GetApartment(ctx context.Context, s Session, id int64) (domain.Apartment, error) {
	var dto apartmentDTO
	body, err := c.do(ctx, s, "get_apartment", http.MethodGet, "apartments/"+strconv.FormatInt(id, 10)+"/", nil)
	if err != nil {
		return domain.Apartment{}, err
	}
	if err := json.Unmarshal(body, &dto); err != nil {
		return domain.Apartment{}, fmt.Errorf("decode apartment %d: %w", id, err)
	}
	return dto.toDomain(), nil
}

// ListClients follows the "next" links of the paginated user listing.
func (c *Client) ListClients(ctx context.Context, s Session) ([]domain.Client, error) {
	path := "users/?user_type=" + url.QueryEscape(domain.ClientUserType)

	var clients []domain.Client
	for page := 0; path != "" && page < maxPages; page++ {
		body, err := c.do(ctx, s, "list_clients", http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		users, next, err := decodeUsers(body)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			clients = append(clients, u.toDomain())
		}
		path = next
	}
	return clients, nil
}

func (c *Client) CreateClient(ctx context.Context, s Session, nc domain.NewClient) (domain.Client, error) {
	body, err := c.do(ctx, s, "create_client", http.MethodPost, "users/", newUserDTO(nc))
	if err != nil {
		return domain.Client{}, err
	}

	var created userDTO
	if err := json.Unmarshal(body, &created); err != nil {
		return domain.Client{}, fmt.Errorf("decode created client: %w", err)
	}
	if created.ID == 0 {
		return domain.Client{}, errors.New("backend returned a client without id")
	}
	// The create response may omit fields such as the passport.
	return nc.WithID(created.ID), nil
}

func (c *Client) CreatePayment(ctx context.Context, s Session, p domain.PaymentPlan) (domain.PaymentPlan, error) {
	body, err := c.do(ctx, s, "create_payment", http.MethodPost, "payments/", newPaymentDTO(p))
	if err != nil {
		return domain.PaymentPlan{}, err
	}

	var created paymentDTO
	if err := json.Unmarshal(body, &created); err != nil {
		return domain.PaymentPlan{}, fmt.Errorf("decode created payment: %w", err)
	}
	if created.ID == 0 {
		return domain.PaymentPlan{}, errors.New("backend returned a payment without id")
	}
	p.ID = created.ID
	return p, nil
}

// do sends one request and returns the body of a 2xx answer. ref may be a
// path relative to the base URL or an absolute "next" link.
func (c *Client) do(ctx context.Context, s Session, op, method, ref string, payload interface{}) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit: %w", op, err)
		}
	}

	target, err := c.baseURL.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: bad url %q: %w", op, ref, err)
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Authorized() {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.BackendCall(op, "error", time.Since(start))
		c.logger.Warn("backend request failed", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.metrics.BackendCall(op, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%s: %w", op, errors.Join(ErrUnauthorized, newAPIError(op, resp.StatusCode, body)))
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, newAPIError(op, resp.StatusCode, body)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Warn("backend returned error status",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 500)),
		)
		return nil, newAPIError(op, resp.StatusCode, body)
	}
	return body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
