package rest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cafe/cafe/internal/coffee"
	"github.com/cafe/cafe/internal/db"
	"github.com/cafe/cafe/internal/events"
	"github.com/cafe/cafe/internal/metrics"
	"github.com/cafe/cafe/internal/repo"
	"github.com/cafe/cafe/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	kind          string
	id            int64
	name          string
	correlationID string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishCoffeeCreated(ctx context.Context, id int64, name string, price decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{"created", id, name, events.CorrelationID(ctx)})
	return f.err
}

func (f *fakePublisher) PublishCoffeeDeleted(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{"deleted", id, "", events.CorrelationID(ctx)})
	return f.err
}

func (f *fakePublisher) all() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedEvent(nil), f.events...)
}

type fixture struct {
	srv       *httptest.Server
	resource  *Resource
	repo      *repo.CoffeeRepository
	publisher *fakePublisher
	metrics   *metrics.Metrics
}

func setupResource(t *testing.T) *fixture {
	database, err := db.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))

	log := logger.NewLogger("test", "info")
	coffees := repo.NewCoffeeRepository(database, log)
	publisher := &fakePublisher{}
	m := metrics.New(prometheus.NewRegistry())

	resource := NewResource(coffees, publisher, m, log)
	mux := http.NewServeMux()
	resource.Register(mux, "/cafe")

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, resource: resource, repo: coffees, publisher: publisher, metrics: m}
}

func (f *fixture) do(t *testing.T, method, path, contentType, accept, body string) *http.Response {
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) seed(t *testing.T, name, price string) *db.Coffee {
	c := &db.Coffee{Name: name, Price: decimal.RequireFromString(price)}
	require.NoError(t, f.repo.CreateCoffee(context.Background(), c))
	return c
}

func readBody(t *testing.T, resp *http.Response) string {
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestListEmptyCatalog(t *testing.T) {
	f := setupResource(t)

	for _, path := range []string{"/cafe/rest/coffees", "/cafe/rest/coffees/"} {
		resp := f.do(t, http.MethodGet, path, "", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))

		var list coffee.List
		require.NoError(t, xml.Unmarshal([]byte(readBody(t, resp)), &list))
		assert.Empty(t, list.Coffees)
	}
}

func TestListReturnsCoffeesInOrder(t *testing.T) {
	f := setupResource(t)
	f.seed(t, "Espresso", "2")
	f.seed(t, "Latte", "3.5")

	resp := f.do(t, http.MethodGet, "/cafe/rest/coffees/", "", "application/xml", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list coffee.List
	require.NoError(t, xml.Unmarshal([]byte(readBody(t, resp)), &list))
	require.Len(t, list.Coffees, 2)
	assert.Equal(t, "Espresso", list.Coffees[0].Name)
	assert.Equal(t, "Latte", list.Coffees[1].Name)
	assert.True(t, decimal.RequireFromString("3.5").Equal(list.Coffees[1].Price))
}

func TestListAsJSON(t *testing.T) {
	f := setupResource(t)
	f.seed(t, "Mocha", "4.25")

	resp := f.do(t, http.MethodGet, "/cafe/rest/coffees", "", "application/json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var coffees []coffee.Coffee
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &coffees))
	require.Len(t, coffees, 1)
	assert.Equal(t, "Mocha", coffees[0].Name)
}

func TestCreateCoffee(t *testing.T) {
	f := setupResource(t)

	body := `<coffee><id>42</id><name>Latte</name><price>3.5</price></coffee>`
	resp := f.do(t, http.MethodPost, "/cafe/rest/coffees/", "application/xml", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created coffee.Coffee
	require.NoError(t, xml.Unmarshal([]byte(readBody(t, resp)), &created))
	assert.NotZero(t, created.ID)
	assert.NotEqual(t, int64(42), created.ID)
	assert.Equal(t, "Latte", created.Name)
	assert.True(t, strings.HasSuffix(resp.Header.Get("Location"), "/cafe/rest/coffees/1"))

	stored, err := f.repo.ListCoffees(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, decimal.RequireFromString("3.5").Equal(stored[0].Price))

	f.resource.Wait()
	assert.Equal(t, []publishedEvent{{"created", created.ID, "Latte", ""}}, f.publisher.all())
}

func TestCreateCoffeeFromJSON(t *testing.T) {
	f := setupResource(t)

	resp := f.do(t, http.MethodPost, "/cafe/rest/coffees", "application/json; charset=utf-8", "application/json",
		`{"name":"Cold Brew","price":"12.99"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created coffee.Coffee
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &created))
	assert.Equal(t, "Cold Brew", created.Name)
	assert.True(t, decimal.RequireFromString("12.99").Equal(created.Price))
}

func TestCreateCoffeeRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"malformed":      `<coffee><name>Latte`,
		"empty name":     `<coffee><name>  </name><price>3</price></coffee>`,
		"negative price": `<coffee><name>Latte</name><price>-1</price></coffee>`,
		"bad price":      `<coffee><name>Latte</name><price>cheap</price></coffee>`,
		"sub-cent price": `<coffee><name>Latte</name><price>3.555</price></coffee>`,
		"huge price":     `<coffee><name>Latte</name><price>12345678901234567.5</price></coffee>`,
	}

	for label, body := range cases {
		t.Run(label, func(t *testing.T) {
			f := setupResource(t)

			resp := f.do(t, http.MethodPost, "/cafe/rest/coffees/", "application/xml", "", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			total, err := f.repo.CountCoffees(context.Background())
			require.NoError(t, err)
			assert.Zero(t, total)

			f.resource.Wait()
			assert.Empty(t, f.publisher.all())
		})
	}
}

func TestGetCoffee(t *testing.T) {
	f := setupResource(t)
	c := f.seed(t, "Mocha", "4")

	resp := f.do(t, http.MethodGet, "/cafe/rest/coffees/1", "", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got coffee.Coffee
	require.NoError(t, xml.Unmarshal([]byte(readBody(t, resp)), &got))
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Mocha", got.Name)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/cafe/rest/coffees/99", "", "", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/cafe/rest/coffees/abc", "", "", "").StatusCode)
}

func TestDeleteCoffee(t *testing.T) {
	f := setupResource(t)
	c := f.seed(t, "Latte", "3.5")

	resp := f.do(t, http.MethodDelete, "/cafe/rest/coffees/1", "", "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, err := f.repo.GetCoffee(context.Background(), c.ID)
	assert.ErrorIs(t, err, repo.ErrCoffeeNotFound)

	f.resource.Wait()
	assert.Equal(t, []publishedEvent{{"deleted", c.ID, "", ""}}, f.publisher.all())
}

func TestDeleteUnknownCoffee(t *testing.T) {
	f := setupResource(t)

	resp := f.do(t, http.MethodDelete, "/cafe/rest/coffees/7", "", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "coffee not found")

	resp = f.do(t, http.MethodDelete, "/cafe/rest/coffees/seven", "", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.resource.Wait()
	assert.Empty(t, f.publisher.all())
}

func TestEventsCarryRequestID(t *testing.T) {
	f := setupResource(t)
	f.seed(t, "Latte", "3.5")

	req, err := http.NewRequest(http.MethodDelete, f.srv.URL+"/cafe/rest/coffees/1", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	f.resource.Wait()
	assert.Equal(t, []publishedEvent{{"deleted", 1, "", "req-42"}}, f.publisher.all())
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := setupResource(t)
	f.publisher.err = errors.New("broker down")

	resp := f.do(t, http.MethodPost, "/cafe/rest/coffees/", "application/xml", "",
		`<coffee><name>Latte</name><price>3</price></coffee>`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	f.resource.Wait()
}

func TestWithoutPublisher(t *testing.T) {
	database, err := db.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, db.RunMigrations(database))

	log := logger.NewLogger("test", "info")
	resource := NewResource(repo.NewCoffeeRepository(database, log), nil, nil, log)
	mux := http.NewServeMux()
	resource.Register(mux, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rest/coffees/", strings.NewReader(`<coffee><name>Latte</name><price>3</price></coffee>`))
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	resource.Wait()
}

func TestRequestsAreObserved(t *testing.T) {
	f := setupResource(t)

	f.do(t, http.MethodGet, "/cafe/rest/coffees/", "", "", "")
	f.do(t, http.MethodDelete, "/cafe/rest/coffees/7", "", "", "")

	assert.Equal(t, 2, testutil.CollectAndCount(f.metrics.RESTDuration))
}
