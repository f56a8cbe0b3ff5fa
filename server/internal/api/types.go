package api

import "github.com/quickbite/quickbite/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusRequest is the body of PATCH /api/v1/orders/:id/status.
type StatusRequest struct {
	Status        types.Status `json:"status"`
	EstimatedTime *int         `json:"estimatedTime,omitempty"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
