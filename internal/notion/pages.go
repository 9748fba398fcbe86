package notion

import (
	"context"
	"fmt"
	"time"

	"github.com/guttosm/networth/internal/domain/models"
	"github.com/guttosm/networth/internal/logger"
)

// Querier is the single-page query operation the page fetcher depends on.
// *Client implements it; tests substitute fakes.
type Querier interface {
	QueryDatabase(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}

var _ Querier = (*Client)(nil)

// FetchAllRecords returns every record of a database in the order the API
// returns them, following pagination cursors until the result set is
// exhausted. Pages are requested sequentially; the first error aborts the
// walk and no partial result is returned.
func FetchAllRecords(ctx context.Context, q Querier, databaseID string) ([]models.Record, error) {
	start := time.Now()

	var (
		records []models.Record
		cursor  string
		pages   int
	)
	for {
		resp, err := q.QueryDatabase(ctx, QueryRequest{
			DatabaseID:  databaseID,
			StartCursor: cursor,
			PageSize:    MaxPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("query database page %d: %w", pages+1, err)
		}
		pages++
		pagesFetchedTotal.Inc()
		records = append(records, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	logger.L().Debug().
		Str("database_id", databaseID).
		Int("pages", pages).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("fetch complete")

	return records, nil
}
