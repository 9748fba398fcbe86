package models

// FallbackCategory is the group that receives amounts whose category
// cannot be determined.
const FallbackCategory = "Sem Account"

// NetWorth is the aggregate computed over every record of a database.
//
// Fields:
//   - Total: sum of all non-zero amounts.
//   - Groups: subtotal per category label; Total equals the sum of its values.
//
// swagger:model NetWorth
type NetWorth struct {
	Total  float64            `json:"total" example:"150"`
	Groups map[string]float64 `json:"groups"`
}

// Clone returns a deep copy so callers sharing one computed result never
// observe each other's mutations.
func (n *NetWorth) Clone() *NetWorth {
	if n == nil {
		return nil
	}
	groups := make(map[string]float64, len(n.Groups))
	for k, v := range n.Groups {
		groups[k] = v
	}
	return &NetWorth{Total: n.Total, Groups: groups}
}
