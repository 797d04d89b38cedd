package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const listingColumns = `id, code, company_name, notice_date_text, source_url, logo_ref,
	is_new, has_results_flag, status, created_at, updated_at`

// ListingRepository is the Postgres implementation of the listing store
type ListingRepository struct {
	db     *sql.DB
	retry  RetryConfig
	logger *logrus.Entry
}

// NewListingRepository creates a repository over an open connection pool
func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{
		db:     db,
		retry:  DefaultRetryConfig(),
		logger: logrus.WithField("component", "ListingRepository"),
	}
}

// mapPQError turns a unique violation into shared.ErrDuplicateCode
func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateCode, pqErr.Detail)
	}
	return err
}

func (r *ListingRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return ExecuteWithRetry(ctx, r.retry, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return mapPQError(err)
		}
		if err := tx.Commit(); err != nil {
			return mapPQError(fmt.Errorf("failed to commit transaction: %w", err))
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (models.Listing, error) {
	var l models.Listing
	var status string
	err := row.Scan(&l.ID, &l.Code, &l.CompanyName, &l.NoticeDateText, &l.SourceURL, &l.LogoRef,
		&l.IsNew, &l.HasResultsFlag, &status, &l.CreatedAt, &l.UpdatedAt)
	l.Status = models.ListingStatus(status)
	return l, err
}

func (r *ListingRepository) queryListings(ctx context.Context, query string, args ...any) ([]models.Listing, error) {
	var listings []models.Listing
	err := ExecuteWithRetry(ctx, r.retry, func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		listings = listings[:0]
		for rows.Next() {
			l, err := scanListing(rows)
			if err != nil {
				return fmt.Errorf("failed to scan listing row: %w", err)
			}
			listings = append(listings, l)
		}
		return rows.Err()
	})
	return listings, err
}

func (r *ListingRepository) ListAllListings(ctx context.Context) ([]models.Listing, error) {
	listings, err := r.queryListings(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

func (r *ListingRepository) ListingIDsWithDetail(ctx context.Context) (map[uuid.UUID]bool, error) {
	ids := make(map[uuid.UUID]bool)
	err := ExecuteWithRetry(ctx, r.retry, func() error {
		rows, err := r.db.QueryContext(ctx, `SELECT listing_id FROM listing_details`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids[id] = true
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list detail ids: %w", err)
	}
	return ids, nil
}

func (r *ListingRepository) GetListingByCode(ctx context.Context, code string) (*models.Listing, error) {
	listings, err := r.queryListings(ctx, `SELECT `+listingColumns+` FROM listings WHERE code = $1`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing by code: %w", err)
	}
	if len(listings) == 0 {
		return nil, nil
	}
	return &listings[0], nil
}

func (r *ListingRepository) GetDetail(ctx context.Context, listingID uuid.UUID) (*models.Detail, error) {
	var detail *models.Detail
	err := ExecuteWithRetry(ctx, r.retry, func() error {
		d, err := r.scanDetail(r.db.QueryRowContext(ctx, detailSelect, listingID))
		if errors.Is(err, sql.ErrNoRows) {
			detail = nil
			return nil
		}
		if err != nil {
			return err
		}
		detail = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get detail: %w", err)
	}
	return detail, nil
}

const detailSelect = `SELECT listing_id, price, distribution_method, share_amount, free_float_amount,
	free_float_percentage, intermediary, consortium_members, first_trade_date, market_segment,
	summary_blocks, company_description, company_city, company_founded_date, attachments,
	revision_marker, updated_at
	FROM listing_details WHERE listing_id = $1`

func (r *ListingRepository) scanDetail(row rowScanner) (*models.Detail, error) {
	var d models.Detail
	var summaryBlocks, attachments []byte
	err := row.Scan(&d.ListingID, &d.Price, &d.DistributionMethod, &d.ShareAmount, &d.FreeFloatAmount,
		&d.FreeFloatPercentage, &d.Intermediary, &d.ConsortiumMembers, &d.FirstTradeDate, &d.MarketSegment,
		&summaryBlocks, &d.CompanyDescription, &d.CompanyCity, &d.CompanyFoundedDate, &attachments,
		&d.RevisionMarker, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(summaryBlocks, &d.SummaryBlocks); err != nil {
		return nil, fmt.Errorf("failed to decode summary blocks: %w", err)
	}
	if err := json.Unmarshal(attachments, &d.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments: %w", err)
	}
	return &d, nil
}

func (r *ListingRepository) CreateListing(ctx context.Context, listing *models.Listing, bundle *models.DetailBundle) error {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO listings (`+listingColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			listing.ID, listing.Code, listing.CompanyName, listing.NoticeDateText, listing.SourceURL,
			listing.LogoRef, listing.IsNew, listing.HasResultsFlag, string(listing.Status),
			listing.CreatedAt, listing.UpdatedAt)
		if err != nil {
			return err
		}
		return writeBundle(ctx, tx, listing.ID, bundle, now)
	})
	if err != nil {
		return fmt.Errorf("failed to create listing %s: %w", listing.Code, err)
	}
	return nil
}

func (r *ListingRepository) UpdateListing(ctx context.Context, listing *models.Listing, bundle *models.DetailBundle) error {
	now := time.Now().UTC()
	listing.UpdatedAt = now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE listings SET company_name = $2, notice_date_text = $3,
			source_url = $4, logo_ref = $5, is_new = $6, has_results_flag = $7, status = $8, updated_at = $9
			WHERE id = $1`,
			listing.ID, listing.CompanyName, listing.NoticeDateText, listing.SourceURL, listing.LogoRef,
			listing.IsNew, listing.HasResultsFlag, string(listing.Status), now)
		if err != nil {
			return err
		}
		if err := expectOneRow(res); err != nil {
			return err
		}
		return writeBundle(ctx, tx, listing.ID, bundle, now)
	})
	if err != nil {
		return fmt.Errorf("failed to update listing %s: %w", listing.Code, err)
	}
	return nil
}

// writeBundle upserts detail and result and replaces the application places
func writeBundle(ctx context.Context, tx *sql.Tx, listingID uuid.UUID, bundle *models.DetailBundle, now time.Time) error {
	if bundle == nil {
		return nil
	}

	d := bundle.Detail
	summaryBlocks, err := json.Marshal(nonNilSlice(d.SummaryBlocks))
	if err != nil {
		return fmt.Errorf("failed to encode summary blocks: %w", err)
	}
	attachments, err := json.Marshal(nonNilSlice(d.Attachments))
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO listing_details (listing_id, price, distribution_method,
		share_amount, free_float_amount, free_float_percentage, intermediary, consortium_members,
		first_trade_date, market_segment, summary_blocks, company_description, company_city,
		company_founded_date, attachments, revision_marker, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (listing_id) DO UPDATE SET
			price = EXCLUDED.price,
			distribution_method = EXCLUDED.distribution_method,
			share_amount = EXCLUDED.share_amount,
			free_float_amount = EXCLUDED.free_float_amount,
			free_float_percentage = EXCLUDED.free_float_percentage,
			intermediary = EXCLUDED.intermediary,
			consortium_members = EXCLUDED.consortium_members,
			first_trade_date = EXCLUDED.first_trade_date,
			market_segment = EXCLUDED.market_segment,
			summary_blocks = EXCLUDED.summary_blocks,
			company_description = EXCLUDED.company_description,
			company_city = EXCLUDED.company_city,
			company_founded_date = EXCLUDED.company_founded_date,
			attachments = EXCLUDED.attachments,
			revision_marker = EXCLUDED.revision_marker,
			updated_at = EXCLUDED.updated_at`,
		listingID, d.Price, d.DistributionMethod, d.ShareAmount, d.FreeFloatAmount, d.FreeFloatPercentage,
		d.Intermediary, d.ConsortiumMembers, d.FirstTradeDate, d.MarketSegment, string(summaryBlocks),
		d.CompanyDescription, d.CompanyCity, d.CompanyFoundedDate, string(attachments), d.RevisionMarker, now)
	if err != nil {
		return fmt.Errorf("failed to upsert detail: %w", err)
	}

	if bundle.Result != nil {
		summary, err := json.Marshal(nonNilSlice(bundle.Result.Summary))
		if err != nil {
			return fmt.Errorf("failed to encode result summary: %w", err)
		}
		notes, err := json.Marshal(nonNilSlice(bundle.Result.Notes))
		if err != nil {
			return fmt.Errorf("failed to encode result notes: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO listing_results (listing_id, summary, notes, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (listing_id) DO UPDATE SET summary = EXCLUDED.summary, notes = EXCLUDED.notes,
				updated_at = EXCLUDED.updated_at`,
			listingID, string(summary), string(notes), now)
		if err != nil {
			return fmt.Errorf("failed to upsert result: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM application_places WHERE listing_id = $1`, listingID); err != nil {
		return fmt.Errorf("failed to clear application places: %w", err)
	}
	for i, place := range bundle.Places {
		_, err := tx.ExecContext(ctx, `INSERT INTO application_places
			(listing_id, position, name, is_consortium_member, is_unlisted_venue)
			VALUES ($1, $2, $3, $4, $5)`,
			listingID, i, place.Name, place.IsConsortiumMember, place.IsUnlistedVenue)
		if err != nil {
			return fmt.Errorf("failed to insert application place: %w", err)
		}
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) execOne(ctx context.Context, query string, args ...any) error {
	return ExecuteWithRetry(ctx, r.retry, func() error {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return mapPQError(err)
		}
		return expectOneRow(res)
	})
}

func (r *ListingRepository) UpdateListingCode(ctx context.Context, listingID uuid.UUID, code string, logoRef *string) error {
	err := r.execOne(ctx, `UPDATE listings SET code = $2, logo_ref = $3, updated_at = NOW() WHERE id = $1`,
		listingID, code, logoRef)
	if err != nil {
		return fmt.Errorf("failed to update listing code to %s: %w", code, err)
	}
	return nil
}

func (r *ListingRepository) UpdateListingStatus(ctx context.Context, listingID uuid.UUID, status models.ListingStatus) error {
	err := r.execOne(ctx, `UPDATE listings SET status = $2, updated_at = NOW() WHERE id = $1`,
		listingID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update listing status: %w", err)
	}
	return nil
}

func (r *ListingRepository) DeleteListing(ctx context.Context, listingID uuid.UUID) error {
	if err := r.execOne(ctx, `DELETE FROM listings WHERE id = $1`, listingID); err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) DeleteAllListings(ctx context.Context) (int, error) {
	var deleted int64
	err := ExecuteWithRetry(ctx, r.retry, func() error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM listings`)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge listings: %w", err)
	}
	r.logger.WithField("deleted", deleted).Warn("Purged all listings")
	return int(deleted), nil
}

func (r *ListingRepository) QueryListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error) {
	filter.Normalize()

	var conditions []string
	var args []any
	addArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != nil {
		conditions = append(conditions, "status = "+addArg(string(*filter.Status)))
	}
	if filter.IsNew != nil {
		conditions = append(conditions, "is_new = "+addArg(*filter.IsNew))
	}
	if filter.HasResultsFlag != nil {
		conditions = append(conditions, "has_results_flag = "+addArg(*filter.HasResultsFlag))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		p := addArg("%" + strings.ToLower(search) + "%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(company_name) LIKE %s OR LOWER(code) LIKE %s)", p, p))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	err := ExecuteWithRetry(ctx, r.retry, func() error {
		return r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	pageArgs := append(append([]any{}, args...), filter.PageSize, filter.Offset())
	query := fmt.Sprintf(`SELECT %s FROM listings%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		listingColumns, where, len(args)+1, len(args)+2)
	listings, err := r.queryListings(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query listings: %w", err)
	}
	return listings, total, nil
}

func (r *ListingRepository) GetListingView(ctx context.Context, code string) (*models.ListingView, error) {
	listings, err := r.queryListings(ctx, `SELECT `+listingColumns+` FROM listings
		WHERE LOWER(code) = LOWER($1) ORDER BY (code = $1) DESC LIMIT 1`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing view: %w", err)
	}
	if len(listings) == 0 {
		return nil, nil
	}

	view := &models.ListingView{Listing: listings[0]}
	id := view.ID

	if view.Detail, err = r.GetDetail(ctx, id); err != nil {
		return nil, err
	}

	err = ExecuteWithRetry(ctx, r.retry, func() error {
		var summary, notes []byte
		result := models.Result{ListingID: id}
		err := r.db.QueryRowContext(ctx, `SELECT summary, notes, updated_at FROM listing_results WHERE listing_id = $1`, id).
			Scan(&summary, &notes, &result.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(summary, &result.Summary); err != nil {
			return fmt.Errorf("failed to decode result summary: %w", err)
		}
		if err := json.Unmarshal(notes, &result.Notes); err != nil {
			return fmt.Errorf("failed to decode result notes: %w", err)
		}
		view.Result = &result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	err = ExecuteWithRetry(ctx, r.retry, func() error {
		rows, err := r.db.QueryContext(ctx, `SELECT name, is_consortium_member, is_unlisted_venue
			FROM application_places WHERE listing_id = $1 ORDER BY position`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		view.ApplicationPlaces = view.ApplicationPlaces[:0]
		for rows.Next() {
			place := models.ApplicationPlace{ListingID: id}
			if err := rows.Scan(&place.Name, &place.IsConsortiumMember, &place.IsUnlistedVenue); err != nil {
				return err
			}
			view.ApplicationPlaces = append(view.ApplicationPlaces, place)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get application places: %w", err)
	}

	return view, nil
}
