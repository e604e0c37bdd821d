package transport

import "inspection_booking_backend/internal/crm"

// ListRequest is the query string of every dashboard listing.
type ListRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
	Page  int `form:"page" validate:"omitempty,min=1"`
}

type ListInput struct {
	Limit  int
	Page   int
	Viewer string
}

type ListResult struct {
	Items []crm.Record `json:"items"`
	Limit int          `json:"limit"`
	Page  int          `json:"page"`
}
