package dto

// NetWorthResponse represents the JSON structure returned by the
// GET /api/networth endpoint.
//
// Fields match the API contract and may differ from internal domain models.
type NetWorthResponse struct {
	Total  float64            `json:"total" example:"150"`                // Sum of every non-zero amount
	Groups map[string]float64 `json:"groups" swaggertype:"object,number"` // Subtotal per category label
}
