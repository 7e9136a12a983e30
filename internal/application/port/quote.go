package port

import (
	"context"

	"folio/internal/domain"
)

// QuoteFetcher resolves one delayed quote for an equity symbol. Stateless;
// each call is a single request/response round trip.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbol string) (domain.EquityQuote, error)
}
