package handler

import "github.com/channelsync/backend/internal/interfaces/http/dto"

// APIResponse is the standard response envelope with a typed data field.
// Handlers marshal dto.Response; this mirror lets clients and tests decode
// the envelope without losing the concrete data type.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the envelope of a failed request.
type ErrorResponse struct {
	Success bool           `json:"success"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SuccessResponse is the envelope of a succeeded request without data.
type SuccessResponse struct {
	Success bool `json:"success"`
}
