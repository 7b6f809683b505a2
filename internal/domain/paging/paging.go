// Package paging drains cursor-paginated upstream collections under an
// optional item cap.
package paging

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

// Page is one page of results. Next is the opaque cursor for the following
// page and is only meaningful when HasNext is true.
type Page[T any] struct {
	Items   []T
	Next    string
	HasNext bool
}

// PageFetcher returns the page addressed by cursor. The first call receives "".
type PageFetcher[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Result is the accumulated output of FetchAll.
type Result[T any] struct {
	Items        []T
	TotalFetched int
	// Truncated is true when the cap stopped the walk while upstream still
	// had items left.
	Truncated bool
}

type options struct {
	maxItems int
	capped   bool
}

// Option configures FetchAll.
type Option func(*options)

// WithMaxItems caps the number of items collected. n must be positive.
func WithMaxItems(n int) Option {
	return func(o *options) {
		o.maxItems = n
		o.capped = true
	}
}

// FetchAll walks pages from fetch until upstream reports no more pages, an
// empty page arrives, or the item cap is reached.
func FetchAll[T any](ctx context.Context, fetch PageFetcher[T], opts ...Option) (Result[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.capped && o.maxItems <= 0 {
		return Result[T]{}, fmt.Errorf("max items must be positive, got %d: %w", o.maxItems, model.ErrInvalidArgument)
	}

	res := Result[T]{Items: []T{}}
	cursor := ""

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("fetching page %d: %w", page, err)
		}

		p, err := fetch(ctx, cursor)
		if err != nil {
			return res, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(p.Items) == 0 {
			break
		}

		if o.capped {
			remaining := o.maxItems - len(res.Items)
			taken := min(len(p.Items), remaining)
			res.Items = append(res.Items, p.Items[:taken]...)
			if len(res.Items) >= o.maxItems {
				res.Truncated = p.HasNext || taken < len(p.Items)
				break
			}
		} else {
			res.Items = append(res.Items, p.Items...)
		}

		if !p.HasNext {
			break
		}
		cursor = p.Next
	}

	res.TotalFetched = len(res.Items)
	return res, nil
}
