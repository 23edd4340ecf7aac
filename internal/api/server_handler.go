package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
)

// ServersHandler exposes the Shlink server-connection CRUD. Every
// operation is scoped to the authenticated user.
type ServersHandler struct {
	servers *biz.ServersUsecase
}

// NewServersHandler creates a servers handler.
func NewServersHandler(servers *biz.ServersUsecase) *ServersHandler {
	return &ServersHandler{servers: servers}
}

// RegisterRoutes registers the server-connection routes.
func (h *ServersHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/servers", h.list).Methods(http.MethodGet)
	r.HandleFunc("/servers", h.create).Methods(http.MethodPost)
	r.HandleFunc("/servers/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/servers/{id}", h.delete).Methods(http.MethodDelete)
}

func (h *ServersHandler) list(w http.ResponseWriter, r *http.Request) {
	user, err := CurrentUser(r.Context())
	if err != nil {
		writeUnauthorized(w, "not authenticated")
		return
	}
	servers, err := h.servers.List(r.Context(), user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list servers"})
		return
	}
	resp := make([]ServerResponse, 0, len(servers))
	for _, s := range servers {
		resp = append(resp, toServerResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ServersHandler) create(w http.ResponseWriter, r *http.Request) {
	user, err := CurrentUser(r.Context())
	if err != nil {
		writeUnauthorized(w, "not authenticated")
		return
	}
	var req CreateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	server, err := h.servers.Create(r.Context(), user.ID, req.Name, req.BaseURL, req.APIKey)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, toServerResponse(server))
}

func (h *ServersHandler) get(w http.ResponseWriter, r *http.Request) {
	user, err := CurrentUser(r.Context())
	if err != nil {
		writeUnauthorized(w, "not authenticated")
		return
	}
	server, err := h.servers.Get(r.Context(), user.ID, mux.Vars(r)["id"])
	if errors.Is(err, biz.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "server not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load server"})
		return
	}
	writeJSON(w, http.StatusOK, toServerResponse(server))
}

func (h *ServersHandler) delete(w http.ResponseWriter, r *http.Request) {
	user, err := CurrentUser(r.Context())
	if err != nil {
		writeUnauthorized(w, "not authenticated")
		return
	}
	err = h.servers.Delete(r.Context(), user.ID, mux.Vars(r)["id"])
	if errors.Is(err, biz.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "server not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete server"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
