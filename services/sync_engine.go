package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SnapshotSource is the page-extraction collaborator
type SnapshotSource interface {
	// FetchListingsSnapshot returns the complete current universe of listing entries
	FetchListingsSnapshot(ctx context.Context) ([]models.ListingEntry, error)
	FetchDetailSnapshot(ctx context.Context, sourceURL string) (*models.DetailSnapshot, error)
}

// SyncEngineConfig bounds one pass
type SyncEngineConfig struct {
	ActiveWindow int
	Workers      int
}

// SyncEngine reconciles the stored catalog against the source. It keeps no state between passes.
type SyncEngine struct {
	source       SnapshotSource
	store        ListingStore
	assets       AssetStore
	promoter     *IdentifierPromoter
	consolidator *DuplicateConsolidator
	config       SyncEngineConfig
	fetchMetrics *shared.ServiceMetrics
	logger       *logrus.Entry
}

// NewSyncEngine wires the engine. assets may be nil.
func NewSyncEngine(source SnapshotSource, store ListingStore, assets AssetStore, config SyncEngineConfig) *SyncEngine {
	if config.ActiveWindow <= 0 {
		config.ActiveWindow = 50
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	return &SyncEngine{
		source:       source,
		store:        store,
		assets:       assets,
		promoter:     NewIdentifierPromoter(store, assets),
		consolidator: NewDuplicateConsolidator(store),
		config:       config,
		fetchMetrics: shared.NewServiceMetrics("DetailFetch"),
		logger:       logrus.WithField("component", "SyncEngine"),
	}
}

// FetchMetrics exposes detail-fetch statistics accumulated across passes
func (e *SyncEngine) FetchMetrics() shared.MetricsSnapshot {
	return e.fetchMetrics.GetSnapshot()
}

// passState collects per-listing outcomes from concurrent workers
type passState struct {
	mu      sync.Mutex
	summary models.SyncSummary
	errs    []error
}

func (s *passState) record(fn func(summary *models.SyncSummary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.summary)
}

func (s *passState) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Failed++
	s.errs = append(s.errs, err)
}

// RunIncrementalSync performs one steady-state reconciliation pass
func (e *SyncEngine) RunIncrementalSync(ctx context.Context) (*models.SyncSummary, error) {
	return e.run(ctx, models.SyncModeIncremental)
}

// RunFullSync clears the catalog and rebuilds it from every snapshot entry.
// The purge only happens after the snapshot was fetched successfully.
func (e *SyncEngine) RunFullSync(ctx context.Context) (*models.SyncSummary, error) {
	return e.run(ctx, models.SyncModeFull)
}

func (e *SyncEngine) run(ctx context.Context, mode models.SyncMode) (*models.SyncSummary, error) {
	operation := "RunIncrementalSync"
	if mode == models.SyncModeFull {
		operation = "RunFullSync"
	}
	logger := e.logger.WithFields(logrus.Fields{"mode": mode})

	state := &passState{summary: models.SyncSummary{Mode: mode, StartedAt: time.Now()}}
	finish := func() *models.SyncSummary {
		summary := state.summary
		summary.FinishedAt = time.Now()
		summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)
		if len(state.errs) > 0 {
			successCount := summary.Created + summary.Updated + summary.Unchanged
			summary.ErrorSummary = shared.BuildBatchProcessingErrorSummary(successCount, len(state.errs), state.errs)
		}
		return &summary
	}

	entries, err := e.source.FetchListingsSnapshot(ctx)
	if err != nil {
		serviceErr := shared.NewServiceError(shared.ErrorCategoryNetwork, "SNAPSHOT_FETCH_FAILED",
			"failed to fetch listings snapshot", "SyncEngine", operation, true, err)
		serviceErr.LogError()
		return finish(), serviceErr
	}
	if len(entries) == 0 {
		serviceErr := shared.NewServiceError(shared.ErrorCategoryValidation, "EMPTY_SNAPSHOT",
			"listings snapshot is empty, refusing to reconcile", "SyncEngine", operation, true, nil)
		serviceErr.LogError()
		return finish(), serviceErr
	}

	idx := BuildSnapshotIndex(entries)
	window := e.config.ActiveWindow

	var existing []models.Listing
	if mode == models.SyncModeFull {
		purged, err := e.store.DeleteAllListings(ctx)
		if err != nil {
			return finish(), shared.WrapError(err, shared.ErrorCategoryDatabase, "PURGE_FAILED", "SyncEngine", operation, true)
		}
		state.summary.Purged = purged
		window = 0
	} else {
		existing, err = e.store.ListAllListings(ctx)
		if err != nil {
			return finish(), shared.WrapError(err, shared.ErrorCategoryDatabase, "LOAD_LISTINGS_FAILED", "SyncEngine", operation, true)
		}
	}

	plan := PlanReconciliation(idx, existing, window)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for _, action := range plan.Upserts() {
		g.Go(func() error {
			e.apply(gctx, action, state)
			return nil
		})
	}
	// apply records its own failures, so the group never returns one
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		logger.WithError(err).Warn("Pass interrupted before cancellations")
		summary := finish()
		return summary, shared.NewServiceError(shared.ErrorCategoryTimeout, "PASS_INTERRUPTED",
			"sync pass interrupted before cancellations", "SyncEngine", operation, true, err).
			WithDetails(map[string]int{"created": summary.Created, "updated": summary.Updated, "failed": summary.Failed})
	}

	for _, action := range plan.Cancels {
		if err := e.store.UpdateListingStatus(ctx, action.Listing.ID, models.StatusCancelled); err != nil {
			state.fail(fmt.Errorf("cancel %s: %w", action.Listing.Code, err))
			continue
		}
		state.record(func(s *models.SyncSummary) { s.Cancelled++ })
		logger.WithFields(logrus.Fields{
			"code":            action.Listing.Code,
			"previous_status": action.Listing.Status,
		}).Info("Cancelled listing absent from snapshot")
	}

	removed, err := e.consolidator.Consolidate(ctx)
	state.record(func(s *models.SyncSummary) { s.DuplicatesRemoved = removed })
	if err != nil {
		state.fail(shared.WrapError(err, shared.ErrorCategoryProcessing, "CONSOLIDATE_FAILED", "DuplicateConsolidator", operation, true))
	}

	summary := finish()
	logger.WithFields(logrus.Fields{
		"created":             summary.Created,
		"updated":             summary.Updated,
		"unchanged":           summary.Unchanged,
		"cancelled":           summary.Cancelled,
		"duplicates_removed":  summary.DuplicatesRemoved,
		"promoted":            summary.Promoted,
		"promotion_conflicts": len(summary.PromotionConflicts),
		"failed":              summary.Failed,
		"purged":              summary.Purged,
		"duration":            summary.Duration,
	}).Info("Sync pass completed")
	e.recordPassCounters(summary)
	e.fetchMetrics.LogSummary()

	return summary, nil
}

// recordPassCounters accumulates pass outcomes next to the detail fetch statistics
func (e *SyncEngine) recordPassCounters(summary *models.SyncSummary) {
	e.fetchMetrics.IncrementCounter("passes_"+string(summary.Mode), 1)
	e.fetchMetrics.IncrementCounter("created", int64(summary.Created))
	e.fetchMetrics.IncrementCounter("updated", int64(summary.Updated))
	e.fetchMetrics.IncrementCounter("cancelled", int64(summary.Cancelled))
	e.fetchMetrics.IncrementCounter("promoted", int64(summary.Promoted))
	e.fetchMetrics.IncrementCounter("duplicates_removed", int64(summary.DuplicatesRemoved))
	e.fetchMetrics.IncrementCounter("failed", int64(summary.Failed))
}

// apply fetches the detail for one planned create or update and writes it as one unit.
// Any failure leaves the stored listing untouched.
func (e *SyncEngine) apply(ctx context.Context, action PlannedAction, state *passState) {
	entry := action.Entry
	logger := e.logger.WithFields(logrus.Fields{
		"action":     action.Action,
		"code":       entry.Code,
		"source_url": entry.SourceURL,
	})

	start := time.Now()
	snapshot, err := e.source.FetchDetailSnapshot(ctx, entry.SourceURL)
	e.fetchMetrics.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		logger.WithError(err).Warn("Detail fetch failed, skipping listing this pass")
		state.fail(fmt.Errorf("fetch %s: %w", entry.Code, err))
		return
	}
	if snapshot == nil {
		snapshot = &models.DetailSnapshot{}
	}

	var listing *models.Listing
	switch action.Action {
	case ActionCreate:
		listing, err = e.create(ctx, entry, snapshot)
		if err != nil {
			logger.WithError(err).Warn("Failed to create listing")
			state.fail(fmt.Errorf("create %s: %w", entry.Code, err))
			return
		}
		state.record(func(s *models.SyncSummary) { s.Created++ })
	case ActionUpdate:
		var changed bool
		listing, changed, err = e.update(ctx, action, snapshot)
		if err != nil {
			logger.WithError(err).Warn("Failed to update listing")
			state.fail(fmt.Errorf("update %s: %w", entry.Code, err))
			return
		}
		state.record(func(s *models.SyncSummary) {
			if changed {
				s.Updated++
			} else {
				s.Unchanged++
			}
		})
	default:
		return
	}

	genuine := genuineCode(entry, snapshot)
	if genuine == "" || !IsPlaceholderCode(listing.Code) {
		return
	}
	placeholder := listing.Code
	outcome, err := e.promoter.Promote(ctx, listing, genuine)
	switch {
	case err != nil:
		logger.WithError(err).Warn("Promotion failed")
		state.fail(fmt.Errorf("promote %s: %w", placeholder, err))
	case outcome == PromotionApplied:
		state.record(func(s *models.SyncSummary) { s.Promoted++ })
	case outcome == PromotionConflict:
		state.record(func(s *models.SyncSummary) {
			s.PromotionConflicts = append(s.PromotionConflicts, placeholder)
		})
	}
}

// genuineCode prefers the code published on the detail page over the listing entry's
func genuineCode(entry models.ListingEntry, snapshot *models.DetailSnapshot) string {
	if snapshot.Code != nil && IsGenuineCode(*snapshot.Code) {
		return *snapshot.Code
	}
	if IsGenuineCode(entry.Code) {
		return entry.Code
	}
	return ""
}

func (e *SyncEngine) create(ctx context.Context, entry models.ListingEntry, snapshot *models.DetailSnapshot) (*models.Listing, error) {
	class := ClassifyListing(entry.IsDraft, entry.IsNew, entry.HasResultsFlag)
	listing := &models.Listing{
		Code:           entry.Code,
		CompanyName:    entry.CompanyName,
		NoticeDateText: entry.NoticeDateText,
		SourceURL:      entry.SourceURL,
		IsNew:          entry.IsNew,
		HasResultsFlag: class.HasResultsFlag,
		Status:         class.Status,
	}
	listing.LogoRef = e.cacheLogo(ctx, listing.Code, nil, entry.LogoURL)

	if err := e.store.CreateListing(ctx, listing, buildDetailBundle(snapshot)); err != nil {
		return nil, err
	}
	return listing, nil
}

// update refreshes listing fields unconditionally and the detail rows only when the
// revision gate says so. changed is false when nothing had to be written.
func (e *SyncEngine) update(ctx context.Context, action PlannedAction, snapshot *models.DetailSnapshot) (*models.Listing, bool, error) {
	entry := action.Entry
	current := *action.Listing
	class := ClassifyListing(entry.IsDraft, entry.IsNew, entry.HasResultsFlag)

	next := current
	next.CompanyName = entry.CompanyName
	next.NoticeDateText = entry.NoticeDateText
	if entry.SourceURL != "" {
		next.SourceURL = entry.SourceURL
	}
	next.IsNew = entry.IsNew
	next.HasResultsFlag = class.HasResultsFlag
	next.Status = class.Status
	next.LogoRef = e.cacheLogo(ctx, current.Code, current.LogoRef, entry.LogoURL)

	stored, err := e.store.GetDetail(ctx, current.ID)
	if err != nil {
		return nil, false, err
	}

	var bundle *models.DetailBundle
	if NeedsDetailRefresh(stored, snapshot.RevisionMarker, action.Revived) {
		bundle = buildDetailBundle(snapshot)
	}

	if bundle == nil && listingFieldsEqual(current, next) {
		return &next, false, nil
	}

	if err := e.store.UpdateListing(ctx, &next, bundle); err != nil {
		return nil, false, err
	}
	if action.Revived {
		e.logger.WithFields(logrus.Fields{
			"code":   next.Code,
			"status": next.Status,
		}).Info("Cancelled listing reappeared in snapshot")
	}
	return &next, true, nil
}

func listingFieldsEqual(a, b models.Listing) bool {
	return a.CompanyName == b.CompanyName &&
		a.NoticeDateText == b.NoticeDateText &&
		a.SourceURL == b.SourceURL &&
		sameMarker(a.LogoRef, b.LogoRef) &&
		a.IsNew == b.IsNew &&
		a.HasResultsFlag == b.HasResultsFlag &&
		a.Status == b.Status
}

// cacheLogo downloads the entry's logo under the code-derived name when the listing has
// no cached logo yet. Download failures are logged and leave the reference unset.
func (e *SyncEngine) cacheLogo(ctx context.Context, code string, current *string, logoURL *string) *string {
	if current != nil || logoURL == nil || *logoURL == "" || e.assets == nil {
		return current
	}
	name := AssetName(code, AssetExtension(*logoURL))
	if err := e.assets.Save(ctx, name, *logoURL); err != nil {
		e.logger.WithError(err).WithField("code", code).Warn("Failed to cache logo")
		return nil
	}
	return &name
}

// buildDetailBundle converts a detail snapshot into the rows written by a full refresh
func buildDetailBundle(snapshot *models.DetailSnapshot) *models.DetailBundle {
	bundle := &models.DetailBundle{
		Detail: models.Detail{
			DetailFields:   snapshot.DetailFields,
			RevisionMarker: snapshot.RevisionMarker,
		},
	}

	if snapshot.ResultsRawTable != nil && *snapshot.ResultsRawTable != "" {
		result, err := ParseResultsTable(*snapshot.ResultsRawTable)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"component": "SyncEngine",
				"error":     err,
			}).Warn("Could not parse results table")
		} else {
			bundle.Result = result
		}
	}

	bundle.Places = make([]models.ApplicationPlace, 0, len(snapshot.ApplicationPlacesRaw))
	for _, raw := range snapshot.ApplicationPlacesRaw {
		name := NormalizeTextContent(raw.Name)
		if name == "" {
			continue
		}
		bundle.Places = append(bundle.Places, models.ApplicationPlace{
			Name:               name,
			IsConsortiumMember: raw.IsConsortiumMember,
			IsUnlistedVenue:    raw.IsUnlistedVenue,
		})
	}
	return bundle
}

// IsSnapshotFailure reports whether err aborted a pass before any write
func IsSnapshotFailure(err error) bool {
	var serviceErr *shared.ServiceError
	return errors.As(err, &serviceErr) &&
		(serviceErr.Code == "SNAPSHOT_FETCH_FAILED" || serviceErr.Code == "EMPTY_SNAPSHOT")
}
