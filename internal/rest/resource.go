// Package rest serves the coffee catalog resource at <context>/rest/coffees.
package rest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cafe/cafe/internal/cafe"
	"github.com/cafe/cafe/internal/coffee"
	"github.com/cafe/cafe/internal/db"
	"github.com/cafe/cafe/internal/events"
	"github.com/cafe/cafe/internal/metrics"
	"github.com/cafe/cafe/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	contentTypeXML  = "application/xml"
	contentTypeJSON = "application/json"
	requestIDHeader = "X-Request-ID"

	maxBodyBytes   = 1 << 20
	publishTimeout = 10 * time.Second
)

// Repository is the coffee storage the resource serves.
type Repository interface {
	ListCoffees(ctx context.Context) ([]*db.Coffee, error)
	GetCoffee(ctx context.Context, id int64) (*db.Coffee, error)
	CreateCoffee(ctx context.Context, coffee *db.Coffee) error
	DeleteCoffee(ctx context.Context, id int64) error
}

// EventPublisher announces catalog changes.
type EventPublisher interface {
	PublishCoffeeCreated(ctx context.Context, id int64, name string, price decimal.Decimal) error
	PublishCoffeeDeleted(ctx context.Context, id int64) error
}

// Resource implements the coffee catalog REST resource
type Resource struct {
	repo      Repository
	publisher EventPublisher
	metrics   *metrics.Metrics
	log       *zap.Logger

	pending sync.WaitGroup
}

// NewResource creates the catalog resource. publisher may be nil, in which
// case no events are sent.
func NewResource(repository Repository, publisher EventPublisher, m *metrics.Metrics, log *zap.Logger) *Resource {
	return &Resource{
		repo:      repository,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// Register mounts the resource on mux under contextPath.
func (r *Resource) Register(mux *http.ServeMux, contextPath string) {
	prefix := contextPath + "/rest/coffees"

	mux.Handle("GET "+prefix, r.observe(r.listCoffees))
	mux.Handle("GET "+prefix+"/{$}", r.observe(r.listCoffees))
	mux.Handle("POST "+prefix, r.observe(r.createCoffee))
	mux.Handle("POST "+prefix+"/{$}", r.observe(r.createCoffee))
	mux.Handle("GET "+prefix+"/{id}", r.observe(r.getCoffee))
	mux.Handle("DELETE "+prefix+"/{id}", r.observe(r.deleteCoffee))
}

// Wait blocks until every event publication started by the resource is done.
func (r *Resource) Wait() {
	r.pending.Wait()
}

func (r *Resource) listCoffees(w http.ResponseWriter, req *http.Request) {
	rows, err := r.repo.ListCoffees(req.Context())
	if err != nil {
		http.Error(w, "failed to list coffees", http.StatusInternalServerError)
		return
	}

	list := coffee.List{Coffees: make([]coffee.Coffee, 0, len(rows))}
	for _, row := range rows {
		list.Coffees = append(list.Coffees, toCoffee(row))
	}

	if wantsJSON(req) {
		writeJSON(w, http.StatusOK, list.Coffees)
		return
	}
	writeXML(w, http.StatusOK, list)
}

func (r *Resource) getCoffee(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}

	row, err := r.repo.GetCoffee(req.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrCoffeeNotFound) {
			http.Error(w, "coffee not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to get coffee", http.StatusInternalServerError)
		return
	}

	r.write(w, req, http.StatusOK, toCoffee(row))
}

func (r *Resource) createCoffee(w http.ResponseWriter, req *http.Request) {
	item, err := decodeCoffee(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := cafe.Validate(item.Name, item.Price); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	row := &db.Coffee{Name: item.Name, Price: item.Price}
	if err := r.repo.CreateCoffee(req.Context(), row); err != nil {
		http.Error(w, "failed to create coffee", http.StatusInternalServerError)
		return
	}

	r.publish(req, row.ID, func(ctx context.Context) error {
		return r.publisher.PublishCoffeeCreated(ctx, row.ID, row.Name, row.Price)
	})

	w.Header().Set("Location", fmt.Sprintf("%s/%d", strings.TrimRight(req.URL.Path, "/"), row.ID))
	r.write(w, req, http.StatusCreated, toCoffee(row))
}

func (r *Resource) deleteCoffee(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}

	if err := r.repo.DeleteCoffee(req.Context(), id); err != nil {
		if errors.Is(err, repo.ErrCoffeeNotFound) {
			http.Error(w, "coffee not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete coffee", http.StatusInternalServerError)
		return
	}

	r.publish(req, id, func(ctx context.Context) error {
		return r.publisher.PublishCoffeeDeleted(ctx, id)
	})

	w.WriteHeader(http.StatusNoContent)
}

// publish sends an event in the background; failures are only logged. The
// request's X-Request-ID travels as the event correlation ID.
func (r *Resource) publish(req *http.Request, id int64, send func(ctx context.Context) error) {
	if r.publisher == nil {
		return
	}
	base := context.Background()
	if requestID := req.Header.Get(requestIDHeader); requestID != "" {
		base = events.WithCorrelationID(base, requestID)
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()

		ctx, cancel := context.WithTimeout(base, publishTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			r.log.Error("Failed to publish coffee event", zap.Int64("id", id), zap.Error(err))
		}
	}()
}

func (r *Resource) write(w http.ResponseWriter, req *http.Request, status int, item coffee.Coffee) {
	if wantsJSON(req) {
		writeJSON(w, status, item)
		return
	}
	writeXML(w, status, item)
}

func toCoffee(row *db.Coffee) coffee.Coffee {
	return coffee.Coffee{ID: row.ID, Name: row.Name, Price: row.Price}
}

func pathID(w http.ResponseWriter, req *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(req.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "id must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decodeCoffee(req *http.Request) (coffee.Coffee, error) {
	var item coffee.Coffee

	body, err := io.ReadAll(http.MaxBytesReader(nil, req.Body, maxBodyBytes))
	if err != nil {
		return item, fmt.Errorf("failed to read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType == contentTypeJSON {
		err = json.Unmarshal(body, &item)
	} else {
		err = xml.Unmarshal(body, &item)
	}
	if err != nil {
		return item, fmt.Errorf("malformed coffee: %w", err)
	}
	return item, nil
}

// wantsJSON reports whether the client prefers JSON over the default XML.
func wantsJSON(req *http.Request) bool {
	accept := req.Header.Get("Accept")
	return strings.Contains(accept, contentTypeJSON) && !strings.Contains(accept, contentTypeXML)
}

func writeXML(w http.ResponseWriter, status int, v interface{}) {
	body, err := xml.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeXML)
	w.WriteHeader(status)
	io.WriteString(w, xml.Header)
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	w.Write(body)
}
