package clients

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cafe/cafe/internal/coffee"
	"github.com/cafe/cafe/internal/metrics"
	"go.uber.org/zap"
)

const (
	contentTypeXML = "application/xml"

	// maxDetail caps how much of a rejection body is kept as error detail.
	maxDetail = 512
)

// CatalogClient talks to the coffee catalog resource over HTTP. Every call is
// a single attempt and nothing is cached between calls.
type CatalogClient struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewCatalogClient creates a client for the resource at baseURL. Timeouts
// are whatever httpClient carries.
func NewCatalogClient(baseURL string, httpClient *http.Client, m *metrics.Metrics, log *zap.Logger) *CatalogClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		metrics: m,
		log:     log,
	}
}

// BaseURL returns the resource address the client was built for.
func (c *CatalogClient) BaseURL() string {
	return c.baseURL
}

// ListAll fetches every coffee in the catalog. An empty catalog yields an
// empty slice.
func (c *CatalogClient) ListAll(ctx context.Context) ([]coffee.Coffee, error) {
	const op = "list"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", contentTypeXML)

	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	coffees := []coffee.Coffee{}
	if len(bytes.TrimSpace(body)) == 0 {
		c.metrics.ObserveCatalogRequest(op, metrics.OutcomeOK)
		return coffees, nil
	}

	var list coffee.List
	if err := xml.Unmarshal(body, &list); err != nil {
		c.metrics.ObserveCatalogRequest(op, metrics.OutcomeDecodeError)
		c.log.Warn("Failed to decode coffee list", zap.String("url", req.URL.String()), zap.Error(err))
		return nil, errors.Join(ErrDecode, err)
	}
	c.metrics.ObserveCatalogRequest(op, metrics.OutcomeOK)

	return append(coffees, list.Coffees...), nil
}

// Create submits a new coffee. Any ID on the coffee is dropped; the catalog
// assigns one and it is not reported back.
func (c *CatalogClient) Create(ctx context.Context, item coffee.Coffee) error {
	const op = "create"

	item.ID = 0
	payload, err := xml.Marshal(item)
	if err != nil {
		return fmt.Errorf("%s: failed to encode coffee: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", contentTypeXML)
	req.Header.Set("Accept", contentTypeXML)

	if _, err := c.do(op, req); err != nil {
		return err
	}
	c.metrics.ObserveCatalogRequest(op, metrics.OutcomeOK)
	return nil
}

// Delete removes the coffee with the given ID.
func (c *CatalogClient) Delete(ctx context.Context, id string) error {
	const op = "delete"

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := c.do(op, req); err != nil {
		return err
	}
	c.metrics.ObserveCatalogRequest(op, metrics.OutcomeOK)
	return nil
}

// do sends req once and returns the body of a 2xx response.
func (c *CatalogClient) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveCatalogRequest(op, metrics.OutcomeUnavailable)
		c.log.Warn("Catalog request failed",
			zap.String("operation", op),
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return nil, errors.Join(ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveCatalogRequest(op, metrics.OutcomeUnavailable)
		return nil, errors.Join(ErrRemoteUnavailable, fmt.Errorf("%s: failed to read response: %w", op, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveCatalogRequest(op, metrics.OutcomeRejected)
		c.log.Warn("Catalog request rejected",
			zap.String("operation", op),
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &RejectedError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     detail(body),
		}
	}

	c.log.Debug("Catalog request completed",
		zap.String("operation", op),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

func detail(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxDetail {
		text = text[:maxDetail]
	}
	return text
}
