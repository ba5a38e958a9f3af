package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"shortlink.local/internal/app/shortlink"
	"shortlink.local/internal/platform/httpx"
)

const (
	msgLegacyMissingURL = "URL longa não fornecida"
	msgLegacyInvalidURL = "URL longa inválida"
	msgLegacyNotFound   = "URL curta não encontrada"
)

type legacyCreateRequest struct {
	URLLonga *string `json:"url_longa"`
}

type legacyCreateResponse struct {
	URLLonga string `json:"url_longa"`
	URLCurta string `json:"url_curta"`
}

type legacyError struct {
	Erro string `json:"erro"`
}

// NewLegacyCreateHandler serves POST /encurtar. Unlike the v1 endpoint it tolerates
// unknown fields, and it answers errors as {"erro": "..."}.
func NewLegacyCreateHandler(svc Shortener, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req legacyCreateRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
		if err := dec.Decode(&req); err != nil || req.URLLonga == nil {
			httpx.JSON(w, http.StatusBadRequest, legacyError{Erro: msgLegacyMissingURL})
			return
		}
		code, err := svc.Shorten(r.Context(), *req.URLLonga)
		if err != nil {
			writeLegacyError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, legacyCreateResponse{
			URLLonga: *req.URLLonga,
			URLCurta: shortURL(r, baseURL, code),
		})
	}
}

func writeLegacyError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	switch {
	case errors.Is(err, shortlink.ErrInvalidURL):
		msg = msgLegacyInvalidURL
	case shortlink.IsInvalidInput(err):
		msg = msgLegacyMissingURL
	}
	if status >= http.StatusInternalServerError {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, status, legacyError{Erro: msg})
}
