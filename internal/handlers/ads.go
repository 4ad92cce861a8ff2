package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
	"github.com/qrgate/portal/types"
)

// CreateAdBody is the JSON form of POST /api/admin/ads.
type CreateAdBody struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	ImageURL    string `json:"image_url"`
	ShowMarquee *bool  `json:"show_marquee"`
}

type MarqueeRequest struct {
	ShowMarquee *bool `json:"showMarquee"`
}

// AdHandler serves banner ads.
type AdHandler struct {
	ads *services.AdService
	log logging.Logger
}

func NewAdHandler(ads *services.AdService, log logging.Logger) *AdHandler {
	return &AdHandler{ads: ads, log: log}
}

// AdRouter registers the public marquee feed.
func AdRouter(r chi.Router, handler *AdHandler) {
	r.Get("/marquee", handler.Marquee)
}

// AdAdminRouter registers ad mutations. The caller applies the admin guard.
func AdAdminRouter(r chi.Router, handler *AdHandler) {
	r.Post("/", handler.Create)
	r.Route("/{adID}", func(r chi.Router) {
		r.Delete("/", handler.Delete)
		r.Patch("/marquee", handler.SetMarquee)
	})
}

func (h *AdHandler) List(w http.ResponseWriter, r *http.Request) {
	ads, err := h.ads.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list ads")
		return
	}
	writeAds(w, ads)
}

func (h *AdHandler) Marquee(w http.ResponseWriter, r *http.Request) {
	ads, err := h.ads.Marquee(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list ads")
		return
	}
	writeAds(w, ads)
}

// Create accepts either JSON or a multipart form with an optional "image"
// file.
func (h *AdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateAdRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		image, err := readUpload(r, "image")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = services.CreateAdRequest{
			Title:    r.FormValue("title"),
			Link:     r.FormValue("link"),
			ImageURL: r.FormValue("image_url"),
			Image:    image,
		}
		if raw := r.FormValue("show_marquee"); raw != "" {
			show, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid show_marquee")
				return
			}
			req.ShowMarquee = &show
		}
	} else {
		var body CreateAdBody
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = services.CreateAdRequest{
			Title:       body.Title,
			Link:        body.Link,
			ImageURL:    body.ImageURL,
			ShowMarquee: body.ShowMarquee,
		}
	}

	ad, err := h.ads.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to create ad")
		return
	}
	writeJSON(w, http.StatusCreated, ad)
}

func (h *AdHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r, "adID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.ads.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err, "failed to delete ad")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdHandler) SetMarquee(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r, "adID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req MarqueeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ShowMarquee == nil {
		writeError(w, http.StatusBadRequest, "showMarquee is required")
		return
	}
	if err := h.ads.SetMarquee(r.Context(), id, *req.ShowMarquee); err != nil {
		writeServiceError(w, r, h.log, err, "failed to update ad")
		return
	}
	writeOK(w)
}

func writeAds(w http.ResponseWriter, ads []types.BannerAd) {
	if ads == nil {
		ads = []types.BannerAd{}
	}
	writeJSON(w, http.StatusOK, ads)
}
