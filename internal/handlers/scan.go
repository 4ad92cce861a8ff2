package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/qr"
	"github.com/qrgate/portal/internal/scan"
)

type DecodeRequest struct {
	Text string `json:"text"`
}

// ScanHandler decodes QR text or images the way the scan page does. Parse
// failures are reported in the snapshot message with status 200.
type ScanHandler struct {
	log logging.Logger
}

func NewScanHandler(log logging.Logger) *ScanHandler {
	return &ScanHandler{log: log}
}

func ScanRouter(r chi.Router, handler *ScanHandler) {
	r.Post("/decode", handler.Decode)
}

func (h *ScanHandler) Decode(w http.ResponseWriter, r *http.Request) {
	var text string
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, err := readUpload(r, formFieldFile)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if file == nil {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		text, err = qr.DecodeBytes(file.Data)
		if err != nil {
			if errors.Is(err, qr.ErrNoCode) {
				writeJSON(w, http.StatusOK, scan.Snapshot{State: scan.StateUnparsed, Message: err.Error()})
				return
			}
			writeError(w, http.StatusBadRequest, "unsupported image")
			return
		}
	} else {
		var req DecodeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		text = req.Text
	}

	viewer := scan.NewViewer(nil, nil)
	viewer.Manual(text)
	writeJSON(w, http.StatusOK, viewer.Snapshot())
}
