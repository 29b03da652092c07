package mock

import (
	"context"

	"github.com/fwojciec/synapse"
)

var _ synapse.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of synapse.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*synapse.FetchResult, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*synapse.FetchResult, error) {
	return f.FetchFn(ctx, url)
}
