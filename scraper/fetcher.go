package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const htmlAcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// PageFetcher returns the markup of one page
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPFetcher downloads pages with a colly collector
type HTTPFetcher struct {
	collector *colly.Collector
	logger    *logrus.Entry
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	c := colly.NewCollector(
		colly.UserAgent(shared.BrowserUserAgent),
		colly.AllowURLRevisit(),
	)
	c.WithTransport(shared.NewScraperTransport(timeout))
	c.SetRequestTimeout(timeout)

	return &HTTPFetcher{
		collector: c,
		logger:    logrus.WithField("component", "HTTPFetcher"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	c := f.collector.Clone()
	c.Context = ctx

	var body []byte
	c.OnRequest(func(r *colly.Request) {
		shared.SetBrowserLikeHeaders(*r.Headers, htmlAcceptHeader)
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		f.logger.WithFields(logrus.Fields{
			"url":         pageURL,
			"status_code": r.StatusCode,
			"error":       err,
		}).Debug("Page request failed")
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if body == nil {
		return nil, fmt.Errorf("empty response from %s", pageURL)
	}
	return body, nil
}

// BrowserRenderer loads pages in headless Chrome so script-built markup is present
type BrowserRenderer struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	logger      *logrus.Entry
}

// NewBrowserRenderer starts one browser allocator shared by every page load. Call Close when done.
func NewBrowserRenderer(timeout time.Duration) *BrowserRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(shared.BrowserUserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserRenderer{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		timeout:     timeout,
		logger:      logrus.WithField("component", "BrowserRenderer"),
	}
}

func (b *BrowserRenderer) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	start := time.Now()
	var html string
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to render %s: %w", pageURL, err)
	}

	b.logger.WithFields(logrus.Fields{
		"url":      pageURL,
		"duration": time.Since(start),
		"bytes":    len(html),
	}).Debug("Rendered page")
	return []byte(html), nil
}

// Close shuts the browser down
func (b *BrowserRenderer) Close() {
	b.cancelAlloc()
}
