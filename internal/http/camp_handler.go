package httpapi

import (
	"net/http"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/directory"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/service"

	"go.uber.org/zap"
)

// CampHandler 营地管理 Handler
type CampHandler struct {
	camps  service.CampService
	logger *zap.Logger
}

func NewCampHandler(camps service.CampService, logger *zap.Logger) *CampHandler {
	return &CampHandler{camps: camps, logger: logger}
}

type campBody struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	IsPublic    *bool     `json:"isPublic"`
	PublicSites *[]string `json:"publicSites"`
}

func (h *CampHandler) ListCamps(w http.ResponseWriter, r *http.Request) {
	resp, err := h.camps.ListCamps(r.Context(), service.ListCampsRequest{Actor: directory.FromContext(r.Context())})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *CampHandler) GetCamp(w http.ResponseWriter, r *http.Request) {
	resp, err := h.camps.GetCamp(r.Context(), service.GetCampRequest{
		Actor:  directory.FromContext(r.Context()),
		CampID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *CampHandler) CreateCamp(w http.ResponseWriter, r *http.Request) {
	var body campBody
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	req := service.CreateCampRequest{Actor: directory.FromContext(r.Context())}
	if body.Name != nil {
		req.Name = *body.Name
	}
	if body.Description != nil {
		req.Description = *body.Description
	}
	if body.IsPublic != nil {
		req.IsPublic = *body.IsPublic
	}
	if body.PublicSites != nil {
		req.PublicSites = *body.PublicSites
	}
	resp, err := h.camps.CreateCamp(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *CampHandler) UpdateCamp(w http.ResponseWriter, r *http.Request) {
	var body campBody
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp, err := h.camps.UpdateCamp(r.Context(), service.UpdateCampRequest{
		Actor:       directory.FromContext(r.Context()),
		CampID:      r.PathValue("id"),
		Name:        body.Name,
		Description: body.Description,
		IsPublic:    body.IsPublic,
		PublicSites: body.PublicSites,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *CampHandler) DeleteCamp(w http.ResponseWriter, r *http.Request) {
	err := h.camps.DeleteCamp(r.Context(), service.GetCampRequest{
		Actor:  directory.FromContext(r.Context()),
		CampID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))
}

func (h *CampHandler) ShareCamp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email      string            `json:"email"`
		Permission domain.Permission `json:"permission"`
	}
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp, err := h.camps.ShareCamp(r.Context(), service.ShareCampRequest{
		Actor:      directory.FromContext(r.Context()),
		CampID:     r.PathValue("id"),
		Email:      body.Email,
		Permission: body.Permission,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *CampHandler) UnshareCamp(w http.ResponseWriter, r *http.Request) {
	resp, err := h.camps.UnshareCamp(r.Context(), service.UnshareCampRequest{
		Actor:  directory.FromContext(r.Context()),
		CampID: r.PathValue("id"),
		Email:  r.URL.Query().Get("email"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *CampHandler) RegenerateCodes(w http.ResponseWriter, r *http.Request) {
	resp, err := h.camps.RegenerateCodes(r.Context(), service.GetCampRequest{
		Actor:  directory.FromContext(r.Context()),
		CampID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *CampHandler) JoinCamp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp, err := h.camps.JoinCamp(r.Context(), service.JoinCampRequest{
		Actor: directory.FromContext(r.Context()),
		Code:  body.Code,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
