package article

import (
	"context"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
)

// Request lists the pages to extract. Null entries are allowed.
type Request struct {
	URLs []*string `json:"urls"`
}

// Page is a downloaded document.
type Page struct {
	// URL is the final location after redirects.
	URL  string
	Body []byte
}

// Fetcher downloads pages.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (Page, error)
}

// Extractor pulls the main text out of a page.
type Extractor interface {
	dispatch.Model
	Extract(ctx context.Context, page Page) (string, error)
}
