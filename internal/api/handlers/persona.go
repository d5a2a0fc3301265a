package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safeboy/safeboy/internal/domain/persona"
)

type PersonaHandler struct {
	personas *persona.Service
}

func NewPersonaHandler(svc *persona.Service) *PersonaHandler {
	return &PersonaHandler{personas: svc}
}

type PersonaRequest struct {
	PersonaName        string `json:"personaName"`
	PersonaDescription string `json:"personaDescription"`
	Instructions       string `json:"instructions"`
	AdditionalContext  string `json:"additionalContext"`
}

func (req PersonaRequest) input() persona.Input {
	return persona.Input{
		PersonaName:        req.PersonaName,
		PersonaDescription: req.PersonaDescription,
		Instructions:       req.Instructions,
		AdditionalContext:  req.AdditionalContext,
	}
}

// GetActive handles GET /api/v1/chatbot-instructions/active.
func (h *PersonaHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	p, err := h.personas.GetActive(r.Context(), tenantID)
	if err != nil {
		writePersonaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	list, err := h.personas.List(r.Context(), tenantID)
	if err != nil {
		writePersonaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: list})
}

// Save handles PUT /api/v1/chatbot-instructions, updating the tenant's record in place.
func (h *PersonaHandler) Save(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req PersonaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.personas.Save(r.Context(), tenantID, req.input())
	if err != nil {
		writePersonaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /api/v1/chatbot-instructions, adding another persona variant.
func (h *PersonaHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req PersonaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.personas.Create(r.Context(), tenantID, req.input())
	if err != nil {
		writePersonaError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PersonaHandler) Activate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	p, err := h.personas.Activate(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		writePersonaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writePersonaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, persona.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, persona.ErrNameRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "chatbot instruction request failed")
	}
}
