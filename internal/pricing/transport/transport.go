// Package transport holds the rate engine wire types.
package transport

// PropertyAttributes describe the property being priced.
type PropertyAttributes struct {
	PropertyCategory    string  `json:"property_category"`
	Bedrooms            int     `json:"bedrooms"`
	Bathrooms           int     `json:"bathrooms"`
	Levels              int     `json:"levels"`
	Basement            bool    `json:"basement"`
	AreaSq              float64 `json:"area_sq,omitempty"`
	Stages              []int   `json:"stages,omitempty"`
	EstimatedDamageLoss float64 `json:"estimated_damage_loss,omitempty"`
}

// EstimateRequest is the body posted to the rate engine.
type EstimateRequest struct {
	Service string `json:"service"`
	PropertyAttributes
}

// StagePrice is one stage of a multi-stage service.
type StagePrice struct {
	Stage int     `json:"stage"`
	Price float64 `json:"price"`
}

// EstimateResponse is the rate engine's answer.
type EstimateResponse struct {
	QuotePrice  float64      `json:"quote_price"`
	Note        string       `json:"note,omitempty"`
	StagePrices []StagePrice `json:"stage_prices,omitempty"`
}

// Estimate is what the workflow consumes. Degraded marks a zero-price
// fallback produced because the engine was unavailable.
type Estimate struct {
	Price       float64      `json:"price"`
	Note        string       `json:"note,omitempty"`
	StagePrices []StagePrice `json:"stagePrices,omitempty"`
	Degraded    bool         `json:"degraded"`
}
