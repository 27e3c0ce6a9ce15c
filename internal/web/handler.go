// Package web hosts the coffee page. Each request runs one cafe.Interaction
// whose form state is kept in a server-side session.
package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/cafe/cafe/internal/cafe"
	"github.com/cafe/cafe/internal/clients"
	"github.com/cafe/cafe/internal/coffee"
	"github.com/cafe/cafe/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionCookie carries the session ID.
const SessionCookie = "CAFESESSIONID"

var _ cafe.Catalog = (*clients.CatalogClient)(nil)

// SessionStore persists the form state of each session.
type SessionStore interface {
	LoadFormState(ctx context.Context, sessionID string) (cafe.FormState, error)
	SaveFormState(ctx context.Context, sessionID string, state cafe.FormState) error
}

// CatalogDialer returns a cafe.Config dial function that reaches the catalog
// over HTTP with client.
func CatalogDialer(client *http.Client, m *metrics.Metrics, log *zap.Logger) func(baseURL string) cafe.Catalog {
	return func(baseURL string) cafe.Catalog {
		return clients.NewCatalogClient(baseURL, client, m, log)
	}
}

// Handler serves the coffee page
type Handler struct {
	cfg         cafe.Config
	contextPath string
	sessions    SessionStore
	host        string
	log         *zap.Logger
}

// NewHandler creates the page handler for contextPath.
func NewHandler(cfg cafe.Config, contextPath string, sessions SessionStore, log *zap.Logger) *Handler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return &Handler{
		cfg:         cfg,
		contextPath: contextPath,
		sessions:    sessions,
		host:        host,
		log:         log,
	}
}

// Register mounts the page routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+h.contextPath+"/{$}", h.showPage)
	mux.HandleFunc("POST "+h.contextPath+"/coffees", h.addCoffee)
	mux.HandleFunc("POST "+h.contextPath+"/coffees/{id}/delete", h.removeCoffee)
}

func (h *Handler) showPage(w http.ResponseWriter, r *http.Request) {
	i, _, ok := h.begin(w, r)
	if !ok {
		return
	}
	h.render(w, r, i, http.StatusOK, "")
}

func (h *Handler) addCoffee(w http.ResponseWriter, r *http.Request) {
	i, sessionID, ok := h.begin(w, r)
	if !ok {
		return
	}

	name := r.PostFormValue("name")
	price, err := cafe.ParsePrice(r.PostFormValue("price"))
	if err != nil {
		i.Name = name
		h.render(w, r, i, http.StatusBadRequest, err.Error())
		return
	}

	done, err := i.Add(r.Context(), name, price)
	if err != nil {
		h.render(w, r, i, statusFor(err), err.Error())
		return
	}

	h.finish(w, r, i, sessionID, done)
}

func (h *Handler) removeCoffee(w http.ResponseWriter, r *http.Request) {
	i, sessionID, ok := h.begin(w, r)
	if !ok {
		return
	}

	done, err := i.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		h.render(w, r, i, statusFor(err), err.Error())
		return
	}

	h.finish(w, r, i, sessionID, done)
}

// begin resolves the session and starts an interaction from its form state.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request) (*cafe.Interaction, string, bool) {
	sessionID := h.sessionID(w, r)

	state, err := h.sessions.LoadFormState(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return nil, "", false
	}

	return cafe.Start(h.cfg, h.contextPath, state, h.log), sessionID, true
}

// finish stores the session state and realizes the completion.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, i *cafe.Interaction, sessionID string, done cafe.Completed) {
	if err := h.sessions.SaveFormState(r.Context(), sessionID, i.Session()); err != nil {
		http.Error(w, "failed to save session", http.StatusInternalServerError)
		return
	}

	if done.Reload {
		http.Redirect(w, r, h.contextPath+"/", http.StatusSeeOther)
		return
	}
	h.render(w, r, i, http.StatusOK, "")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, i *cafe.Interaction, status int, message string) {
	data := pageData{
		Host:        h.host,
		ContextPath: h.contextPath,
		Name:        i.Name,
		Price:       i.Price.String(),
		Error:       message,
	}

	coffees, err := i.RefreshAndList(r.Context())
	if err != nil {
		if message == "" {
			data.Error = err.Error()
			status = statusFor(err)
		}
		coffees = []coffee.Coffee{}
	}
	data.Coffees = coffees

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.log.Error("Failed to render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()
	path := h.contextPath
	if path == "" {
		path = "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     path,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, cafe.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, clients.ErrRemoteUnavailable),
		errors.Is(err, clients.ErrRemoteRejected),
		errors.Is(err, clients.ErrDecode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
