package service

import "github.com/guttosm/networth/internal/domain/models"

// Aggregate sums amountProp across records, grouped by the single-select
// categoryProp.
//
// Behavior:
//   - Records whose amount is 0 (missing, empty, non-numeric, or literally
//     zero) are skipped and create no group.
//   - Records without a usable category land in models.FallbackCategory.
//   - Total always equals the sum of Groups; Groups is never nil.
func Aggregate(records []models.Record, amountProp, categoryProp string) models.NetWorth {
	out := models.NetWorth{Groups: make(map[string]float64)}

	for _, rec := range records {
		amount := models.NumberOf(rec, amountProp)
		if amount == 0 {
			continue
		}
		out.Total += amount
		out.Groups[models.CategoryOf(rec, categoryProp, models.FallbackCategory)] += amount
	}
	return out
}
