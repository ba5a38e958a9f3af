// Package httpx holds the JSON request/response helpers shared by handlers and middleware.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

const RequestIDHeader = "X-Request-ID"

// maxBodyBytes caps request bodies; a destination URL is never anywhere near this.
const maxBodyBytes = 64 << 10

var (
	ErrEmptyBody    = errors.New("empty body")
	ErrTrailingData = errors.New("body must contain only one JSON value")
)

type ErrorResponse struct {
	Code      int    `json:"code"`                 // HTTP 状态码
	Message   string `json:"message"`              // 错误信息
	RequestID string `json:"request_id,omitempty"` // 请求序号，没有就空
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "err", err)
	}
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, status, ErrorResponse{
		Code:      status,
		Message:   message,
		RequestID: r.Header.Get(RequestIDHeader),
	})
}

// DecodeJSON 只解析 json：未知字段报错，且 body 里只能有一个 JSON 值。
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}
