package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-querystring/query"
	"golang.org/x/time/rate"

	"github.com/desertthunder/stx/internal/shared"
)

const (
	// DefaultPerPage is the page size requested from the listing endpoint.
	DefaultPerPage = shared.MaxPerPage
	// DefaultPageInterval is the minimum spacing between page requests.
	DefaultPageInterval = time.Second
)

// RawRecord is one activity object exactly as decoded from a page. Numbers are [json.Number].
type RawRecord = map[string]any

// Requester performs one resilient GET. [*Executor] is the production implementation.
type Requester interface {
	Execute(ctx context.Context, endpoint string, header http.Header, query url.Values) (json.RawMessage, error)
}

// PageRequest is the query of the activity listing endpoint.
type PageRequest struct {
	After   int64 `url:"after"`
	Page    int   `url:"page"`
	PerPage int   `url:"per_page"`
}

// PageEvent describes a fetched page.
type PageEvent struct {
	Page  int
	Count int
	Total int
}

// PagerConfig configures a [Pager]. Zero values select the defaults; a negative Interval disables spacing.
type PagerConfig struct {
	Endpoint string
	PerPage  int
	Interval time.Duration
	Logger   *log.Logger
	OnPage   func(PageEvent)
}

// Pager walks the activity listing one page at a time.
type Pager struct {
	requester Requester
	endpoint  string
	perPage   int
	limit     rate.Limit
	limiter   *rate.Limiter
	logger    *log.Logger
	onPage    func(PageEvent)
}

// NewPager creates a [Pager] that fetches through r.
func NewPager(r Requester, cfg PagerConfig) (*Pager, error) {
	p := &Pager{
		requester: r,
		endpoint:  cfg.Endpoint,
		perPage:   cfg.PerPage,
		logger:    cfg.Logger,
		onPage:    cfg.OnPage,
	}

	if p.endpoint == "" {
		p.endpoint = ActivitiesPath
	}
	if p.perPage == 0 {
		p.perPage = DefaultPerPage
	}
	if p.perPage < 1 || p.perPage > shared.MaxPerPage {
		return nil, fmt.Errorf("%w: per_page must be between 1 and %d, got %d", shared.ErrInvalidArgument, shared.MaxPerPage, p.perPage)
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultPageInterval
	}
	if interval < 0 {
		p.limit = rate.Inf
	} else {
		p.limit = rate.Every(interval)
	}
	p.limiter = rate.NewLimiter(p.limit, 1)

	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	return p, nil
}

// FetchAll returns the records of every activity started after since, page by page.
//
// The sequence is lazy and single-use: pages are requested while it is ranged over, and ranging a
// second time yields [shared.ErrAlreadyConsumed]. It ends at the first empty page. An error is
// yielded once, as the final element.
func (p *Pager) FetchAll(ctx context.Context, since time.Time) iter.Seq2[RawRecord, error] {
	used := false
	return func(yield func(RawRecord, error) bool) {
		if used {
			yield(nil, shared.ErrAlreadyConsumed)
			return
		}
		used = true

		total := 0
		for page := 1; ; page++ {
			if err := p.limiter.Wait(ctx); err != nil {
				yield(nil, err)
				return
			}

			q, err := query.Values(PageRequest{After: since.Unix(), Page: page, PerPage: p.perPage})
			if err != nil {
				yield(nil, fmt.Errorf("failed to encode page query: %w", err))
				return
			}

			body, err := p.requester.Execute(ctx, p.endpoint, nil, q)
			if err != nil {
				yield(nil, fmt.Errorf("failed to fetch page %d: %w", page, err))
				return
			}

			records, err := decodePage(body)
			if err != nil {
				yield(nil, fmt.Errorf("failed to decode page %d: %w", page, err))
				return
			}

			if len(records) == 0 {
				p.logger.Info("no more activities", "pages", page-1, "total", total)
				return
			}

			total += len(records)
			p.logger.Info("fetched page", "page", page, "count", len(records))
			if p.onPage != nil {
				p.onPage(PageEvent{Page: page, Count: len(records), Total: total})
			}

			p.rest(time.Now())

			for _, r := range records {
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// rest empties the limiter at the end of a page, so the next Wait blocks a full interval from now
// however long the page took.
func (p *Pager) rest(now time.Time) {
	p.limiter = rate.NewLimiter(p.limit, 1)
	p.limiter.AllowN(now, 1)
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[RawRecord, error]) ([]RawRecord, error) {
	var records []RawRecord
	for r, err := range seq {
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func decodePage(body []byte) ([]RawRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var records []RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
