package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/services"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/sirupsen/logrus"
)

var _ services.SnapshotSource = (*Source)(nil)

// ErrEmptyListingsPage means a listings page rendered its container without any entry
var ErrEmptyListingsPage = errors.New("listings page has no entries")

// Source crawls the listings pages and detail pages of the halka arz site
type Source struct {
	config    shared.SourceConfig
	fetcher   PageFetcher
	selectors Selectors
	limiter   *shared.HTTPRequestRateLimiter
	metrics   *shared.ServiceMetrics
	logger    *logrus.Entry
}

// NewSource creates a source reading through fetcher. A nil fetcher picks one from the render mode.
func NewSource(config shared.SourceConfig, fetcher PageFetcher) *Source {
	if config.MaxPages <= 0 {
		config.MaxPages = 40
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 0.5
	}
	if config.HTTPRequestTimeout <= 0 {
		config.HTTPRequestTimeout = 30 * time.Second
	}
	if config.MaxRetryAttempts < 0 {
		config.MaxRetryAttempts = 0
	}
	if fetcher == nil {
		if config.RenderMode == shared.RenderModeBrowser {
			fetcher = NewBrowserRenderer(config.HTTPRequestTimeout)
		} else {
			fetcher = NewHTTPFetcher(config.HTTPRequestTimeout)
		}
	}

	return &Source{
		config:    config,
		fetcher:   fetcher,
		selectors: DefaultSelectors(),
		limiter:   shared.NewHTTPRequestRateLimiter(config.RequestsPerSecond),
		metrics:   shared.NewServiceMetrics("SourcePages"),
		logger:    logrus.WithField("component", "Source"),
	}
}

// WithSelectors overrides the default layout selectors
func (s *Source) WithSelectors(sel Selectors) *Source {
	s.selectors = sel
	return s
}

// Close releases the browser when the source renders pages with one
func (s *Source) Close() {
	if renderer, ok := s.fetcher.(*BrowserRenderer); ok {
		renderer.Close()
	}
}

// Metrics returns page fetch statistics
func (s *Source) Metrics() shared.MetricsSnapshot {
	return s.metrics.GetSnapshot()
}

// FetchListingsSnapshot walks every active listings page, then every drafts page.
// Any page failure fails the whole snapshot since a partial universe would read as
// disappeared listings.
func (s *Source) FetchListingsSnapshot(ctx context.Context) ([]models.ListingEntry, error) {
	active, err := s.crawl(ctx, s.pageURL(s.config.ListingsPath), false)
	if err != nil {
		return nil, err
	}

	var drafts []models.ListingEntry
	if strings.TrimSpace(s.config.DraftsPath) != "" {
		drafts, err = s.crawl(ctx, s.pageURL(s.config.DraftsPath), true)
		if err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"active_entries": len(active),
		"draft_entries":  len(drafts),
	}).Info("Fetched listings snapshot")
	return append(active, drafts...), nil
}

func (s *Source) FetchDetailSnapshot(ctx context.Context, sourceURL string) (*models.DetailSnapshot, error) {
	body, err := s.fetchWithRetry(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return ParseDetailPage(body, sourceURL, s.selectors)
}

// crawl follows next-page links from startURL. Entries repeated across pages keep their first position.
// A page without entries fails the crawl, except the first page of the drafts list.
func (s *Source) crawl(ctx context.Context, startURL string, isDraft bool) ([]models.ListingEntry, error) {
	var entries []models.ListingEntry
	seenEntries := make(map[string]bool)
	visited := make(map[string]bool)

	pageURL := startURL
	for page := 1; pageURL != ""; page++ {
		if page > s.config.MaxPages {
			return nil, fmt.Errorf("listings at %s exceed %d pages", startURL, s.config.MaxPages)
		}
		if visited[pageURL] {
			break
		}
		visited[pageURL] = true

		body, err := s.fetchWithRetry(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		pageEntries, next, err := ParseListingsPage(body, pageURL, s.selectors, isDraft)
		if err != nil {
			return nil, err
		}
		if len(pageEntries) == 0 && (page > 1 || !isDraft) {
			return nil, fmt.Errorf("listings page %s: %w", pageURL, ErrEmptyListingsPage)
		}

		for _, e := range pageEntries {
			if seenEntries[e.SourceURL] {
				continue
			}
			seenEntries[e.SourceURL] = true
			entries = append(entries, e)
		}

		s.logger.WithFields(logrus.Fields{
			"url":      pageURL,
			"page":     page,
			"entries":  len(pageEntries),
			"is_draft": isDraft,
		}).Debug("Parsed listings page")
		pageURL = next
	}
	return entries, nil
}

// fetchWithRetry paces every attempt through the rate limiter and backs off exponentially
// between retryable failures
func (s *Source) fetchWithRetry(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		body, err := s.fetcher.Fetch(ctx, pageURL)
		s.metrics.RecordRequest(err == nil, time.Since(start))
		if err == nil {
			return body, nil
		}

		lastErr = fmt.Errorf("attempt %d failed: %w", attempt+1, err)
		if !shared.IsRetryableError(err) {
			break
		}
		s.logger.WithFields(logrus.Fields{
			"url":     pageURL,
			"attempt": attempt + 1,
			"error":   err,
		}).Warn("Retryable page fetch failure")
	}
	return nil, lastErr
}

func (s *Source) pageURL(path string) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
