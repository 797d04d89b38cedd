package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// AssetStore caches listing logos under code-derived names
type AssetStore interface {
	// Save downloads sourceURL and stores it as name
	Save(ctx context.Context, name, sourceURL string) error
	Exists(name string) bool
	Rename(oldName, newName string) error
}

// FileAssetStore keeps cached assets as files in one directory
type FileAssetStore struct {
	dir       string
	collector *colly.Collector
	logger    *logrus.Entry
}

// NewFileAssetStore creates the directory if needed and prepares the download collector
func NewFileAssetStore(dir string, timeout time.Duration) (*FileAssetStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}

	c := colly.NewCollector(
		colly.UserAgent(shared.BrowserUserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(5*1024*1024),
	)
	c.WithTransport(shared.NewScraperTransport(timeout))
	c.SetRequestTimeout(timeout)

	return &FileAssetStore{
		dir:       dir,
		collector: c,
		logger:    logrus.WithField("component", "FileAssetStore"),
	}, nil
}

func (s *FileAssetStore) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *FileAssetStore) Save(ctx context.Context, name, sourceURL string) error {
	c := s.collector.Clone()
	c.Context = ctx

	var saveErr error
	c.OnResponse(func(r *colly.Response) {
		saveErr = r.Save(s.path(name))
	})

	if err := c.Visit(sourceURL); err != nil {
		return fmt.Errorf("failed to download asset %s: %w", sourceURL, err)
	}
	if saveErr != nil {
		return fmt.Errorf("failed to store asset %s: %w", name, saveErr)
	}

	s.logger.WithFields(logrus.Fields{"name": name, "source_url": sourceURL}).Debug("Cached asset")
	return nil
}

func (s *FileAssetStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *FileAssetStore) Rename(oldName, newName string) error {
	if _, err := os.Stat(s.path(newName)); err == nil {
		return fmt.Errorf("asset %s already exists", newName)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(s.path(oldName), s.path(newName))
}
