package transport

// ListServicesRequest filters the service catalog.
type ListServicesRequest struct {
	PropertyCategory string `form:"propertyCategory" validate:"omitempty,oneof=residential commercial"`
}

// AddonResponse is an optional extra offered with a service.
type AddonResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ServiceResponse represents an inspection service in API responses.
type ServiceResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ServiceType      string          `json:"serviceType,omitempty"`
	PropertyCategory string          `json:"propertyCategory,omitempty"`
	Addons           []AddonResponse `json:"addons,omitempty"`
}

// ServiceListResponse wraps a list of services.
type ServiceListResponse struct {
	Items []ServiceResponse `json:"items"`
	Total int               `json:"total"`
}
