// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// SuccessResponse is a generic success acknowledgment.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps list results.
type ListResponse struct {
	Items      any `json:"items"`
	TotalCount int `json:"totalCount"`
	Limit      int `json:"limit,omitempty"`
	Offset     int `json:"offset,omitempty"`
}
