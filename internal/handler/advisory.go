package handler

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/service"
	"github.com/segyhp/pawn-ledger/pkg/response"

	"github.com/go-playground/validator/v10"
)

const maxImageBytes = 10 << 20

type AdvisoryHandler struct {
	ledger    service.Ledger
	validator *validator.Validate
}

func NewAdvisoryHandler(ledger service.Ledger) *AdvisoryHandler {
	return &AdvisoryHandler{
		ledger:    ledger,
		validator: newValidator(),
	}
}

type ImageAnalysis struct {
	Analysis string `json:"analysis"`
}

// Valuation handles POST /advisory/valuation
func (h *AdvisoryHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	var req domain.ValuationRequest
	if !decode(w, r, h.validator, &req, false) {
		return
	}

	valuation := h.ledger.ValuationAdvice(r.Context(), &req)
	if valuation == nil {
		response.Error(w, http.StatusServiceUnavailable, "Valuation advice is unavailable", nil)
		return
	}
	response.Success(w, valuation)
}

// Image handles POST /advisory/image. The photo comes either as the "image"
// part of a multipart form or as the raw request body.
func (h *AdvisoryHandler) Image(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)

	image, mimeType, err := readImage(r)
	if err != nil {
		response.BadRequest(w, "Invalid image upload", err)
		return
	}
	if len(image) == 0 {
		response.BadRequest(w, "Image is required", nil)
		return
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		response.BadRequest(w, "Unsupported image type "+mimeType, nil)
		return
	}

	analysis := h.ledger.AnalyzeDeviceImage(r.Context(), image, mimeType)
	if analysis == "" {
		response.Error(w, http.StatusServiceUnavailable, "Image analysis is unavailable", nil)
		return
	}
	response.Success(w, ImageAnalysis{Analysis: analysis})
}

func readImage(r *http.Request) ([]byte, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("image")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, file); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), header.Header.Get("Content-Type"), nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	return body, r.Header.Get("Content-Type"), nil
}
