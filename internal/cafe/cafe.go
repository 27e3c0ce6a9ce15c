// Package cafe drives one user interaction with the coffee catalog: it lists
// the catalog, submits new coffees and removes old ones through a remote
// Catalog, and tracks the form state a browser session keeps between
// requests.
package cafe

import (
	"context"
	"fmt"
	"net"

	"github.com/cafe/cafe/internal/coffee"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Catalog is the remote coffee collection an interaction works against.
type Catalog interface {
	ListAll(ctx context.Context) ([]coffee.Coffee, error)
	Create(ctx context.Context, c coffee.Coffee) error
	Delete(ctx context.Context, id string) error
}

// FormState is the last coffee a session submitted successfully. Both
// fields always travel together.
type FormState struct {
	PendingName  string
	PendingPrice decimal.Decimal
}

// Equal reports whether both states hold the same name and price.
func (s FormState) Equal(other FormState) bool {
	return s.PendingName == other.PendingName && s.PendingPrice.Equal(other.PendingPrice)
}

// Completed ends an interaction. Reload asks the host to send the browser
// back to the catalog page.
type Completed struct {
	Reload bool
}

// Endpoint is the fixed location of the catalog resource. Only the context
// path varies per request.
type Endpoint struct {
	Scheme string
	Host   string
	Port   string
}

// BaseURL returns the catalog resource address under contextPath.
func (e Endpoint) BaseURL(contextPath string) string {
	return fmt.Sprintf("%s://%s%s/rest/coffees", e.Scheme, net.JoinHostPort(e.Host, e.Port), contextPath)
}

// Config wires interactions to the catalog.
type Config struct {
	Endpoint Endpoint
	// Dial returns the Catalog for a base address.
	Dial func(baseURL string) Catalog
}

// Interaction is the state of a single request. Name and Price mirror the
// form being submitted; they are not persisted unless an Add succeeds.
type Interaction struct {
	Name  string
	Price decimal.Decimal

	baseURL string
	catalog Catalog
	session FormState
	log     *zap.Logger
}

// Start begins an interaction from the session's stored form state.
func Start(cfg Config, contextPath string, state FormState, log *zap.Logger) *Interaction {
	baseURL := cfg.Endpoint.BaseURL(contextPath)
	return &Interaction{
		Name:    state.PendingName,
		Price:   state.PendingPrice,
		baseURL: baseURL,
		catalog: cfg.Dial(baseURL),
		session: state,
		log:     log.With(zap.String("catalog", baseURL)),
	}
}

// BaseURL returns the catalog address this interaction talks to.
func (i *Interaction) BaseURL() string {
	return i.baseURL
}

// Session returns the form state to store back into the session.
func (i *Interaction) Session() FormState {
	return i.session
}

// RefreshAndList fetches the catalog. Every call is a remote round trip.
func (i *Interaction) RefreshAndList(ctx context.Context) ([]coffee.Coffee, error) {
	coffees, err := i.catalog.ListAll(ctx)
	if err != nil {
		i.log.Warn("Failed to list coffees", zap.Error(err))
		return nil, err
	}
	return coffees, nil
}

// Add submits a new coffee. The session form state only changes once the
// catalog has accepted it.
func (i *Interaction) Add(ctx context.Context, name string, price decimal.Decimal) (Completed, error) {
	i.Name = name
	i.Price = price

	if err := Validate(name, price); err != nil {
		return Completed{}, err
	}

	if err := i.catalog.Create(ctx, coffee.New(name, price)); err != nil {
		i.log.Warn("Failed to add coffee", zap.String("name", name), zap.Error(err))
		return Completed{}, err
	}

	i.session = FormState{PendingName: name, PendingPrice: price}
	i.log.Info("Coffee added", zap.String("name", name), zap.String("price", price.String()))
	return Completed{Reload: true}, nil
}

// Remove deletes the coffee with the given ID.
func (i *Interaction) Remove(ctx context.Context, id string) (Completed, error) {
	if err := i.catalog.Delete(ctx, id); err != nil {
		i.log.Warn("Failed to remove coffee", zap.String("id", id), zap.Error(err))
		return Completed{}, err
	}

	i.log.Info("Coffee removed", zap.String("id", id))
	return Completed{Reload: true}, nil
}
