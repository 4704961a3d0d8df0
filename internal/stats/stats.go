// Package stats serves read-only projections over the donation ledger and
// the donor and donee directories.
package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"feedlink/internal/donation/models"
	"feedlink/pkg/requestcontext"
)

const (
	summaryKey      = "summary"
	adminSummaryKey = "admin_summary"

	recentDonorCount  = 3
	recentDonorWindow = 7 * 24 * time.Hour
)

// Ledger reads donation counts.
type Ledger interface {
	CountConfirmed(ctx context.Context) (int, error)
	CountPending(ctx context.Context) (int, error)
	CountCompletedBetween(ctx context.Context, from, to time.Time) (int, error)
	RecentCompleted(ctx context.Context, n int) ([]*models.Donation, error)
}

type DonorCounter interface {
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type DoneeCounter interface {
	Count(ctx context.Context) (int, error)
}

// DonorRef names a donor of a recently completed donation.
type DonorRef struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Summary is the public dashboard.
type Summary struct {
	TotalDonations     int        `json:"totalDonations"`
	ThisMonthDonations int        `json:"thisMonthDonations"`
	PendingDonations   int        `json:"pendingDonations"`
	LastThreeDonors    []DonorRef `json:"lastThreeDonors"`
}

// AdminSummary is the operator dashboard.
type AdminSummary struct {
	TotalDonors  int `json:"totalDonors"`
	TotalDonees  int `json:"totalDonees"`
	RecentDonors int `json:"recentDonors"`
}

// Aggregator computes and caches the dashboards.
type Aggregator struct {
	ledger Ledger
	donors DonorCounter
	donees DoneeCounter
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithCache sets the snapshot cache and its TTL. A zero TTL disables caching.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(a *Aggregator) {
		a.cache = c
		a.ttl = ttl
	}
}

func New(ledger Ledger, donors DonorCounter, donees DoneeCounter, opts ...Option) *Aggregator {
	a := &Aggregator{
		ledger: ledger,
		donors: donors,
		donees: donees,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summary counts confirmed and pending donations, completions in the current
// UTC calendar month and the donors of the three latest completions.
func (a *Aggregator) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	if a.cached(ctx, summaryKey, &out) {
		return &out, nil
	}

	now := requestcontext.Now(ctx).UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var recent []*models.Donation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalDonations, err = a.ledger.CountConfirmed(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.ThisMonthDonations, err = a.ledger.CountCompletedBetween(gctx, monthStart, monthEnd)
		return err
	})
	g.Go(func() (err error) {
		out.PendingDonations, err = a.ledger.CountPending(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = a.ledger.RecentCompleted(gctx, recentDonorCount)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.LastThreeDonors = make([]DonorRef, 0, len(recent))
	for _, d := range recent {
		ref := DonorRef{Name: d.DonorName}
		if d.CompletedAt != nil {
			ref.Date = *d.CompletedAt
		}
		out.LastThreeDonors = append(out.LastThreeDonors, ref)
	}

	a.store(ctx, summaryKey, &out)
	return &out, nil
}

// AdminSummary counts donors, donees and donors created in the last 7 days.
func (a *Aggregator) AdminSummary(ctx context.Context) (*AdminSummary, error) {
	var out AdminSummary
	if a.cached(ctx, adminSummaryKey, &out) {
		return &out, nil
	}

	since := requestcontext.Now(ctx).Add(-recentDonorWindow)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalDonors, err = a.donors.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalDonees, err = a.donees.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentDonors, err = a.donors.CountSince(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.store(ctx, adminSummaryKey, &out)
	return &out, nil
}

// cached decodes a snapshot into dst. Cache errors are logged and treated
// as misses.
func (a *Aggregator) cached(ctx context.Context, key string, dst any) bool {
	if a.cache == nil || a.ttl <= 0 {
		return false
	}
	b, found, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.WarnContext(ctx, "stats cache read failed", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		a.logger.WarnContext(ctx, "stats cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (a *Aggregator) store(ctx context.Context, key string, v any) {
	if a.cache == nil || a.ttl <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, b, a.ttl); err != nil {
		a.logger.WarnContext(ctx, "stats cache write failed", "key", key, "error", err)
	}
}
