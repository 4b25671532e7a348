package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/postgres"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

const listingsTable = "businesses"

var listingColumns = []string{
	"id", "business_name", "owner_name", "phone", "email", "category",
	"about", "description", "images", "status", "submitted_at", "promoted_at",
}

// ListingAdapter implements the ListingRepository interface
type ListingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewListingAdapter creates a new listing adapter
func NewListingAdapter(client *postgres.Client) *ListingAdapter {
	return &ListingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.ListingRepository = (*ListingAdapter)(nil)

func scanListing(row rowScanner) (*entities.Listing, error) {
	l := &entities.Listing{}
	var images pq.StringArray
	var status string
	var promotedAt sql.NullTime
	err := row.Scan(
		&l.ID,
		&l.BusinessName,
		&l.OwnerName,
		&l.Phone,
		&l.Email,
		&l.Category,
		&l.About,
		&l.Description,
		&images,
		&status,
		&l.SubmittedAt,
		&promotedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Images = nonNil([]string(images))
	l.Status = entities.ListingStatus(status)
	if promotedAt.Valid {
		t := promotedAt.Time
		l.PromotedAt = &t
	}
	return l, nil
}

func (a *ListingAdapter) queryListings(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Listing, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build listings query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to list businesses", err)
	}
	defer rows.Close()

	listings := []*entities.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan business", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to list businesses", err)
	}
	return listings, nil
}

// Create inserts a pending listing
func (a *ListingAdapter) Create(ctx context.Context, listing *entities.Listing) (*entities.Listing, error) {
	if listing == nil {
		return nil, apperrors.NewInternalError("listing is nil", fmt.Errorf("listing is nil"))
	}

	l := *listing
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = entities.ListingStatusPending
	}
	if l.SubmittedAt.IsZero() {
		l.SubmittedAt = time.Now().UTC()
	}

	query, args, err := a.db.Insert(listingsTable).
		Rows(goqu.Record{
			"id":            l.ID,
			"business_name": trimmed(l.BusinessName),
			"owner_name":    trimmed(l.OwnerName),
			"phone":         trimmed(l.Phone),
			"email":         trimmed(l.Email),
			"category":      l.Category,
			"about":         l.About,
			"description":   l.Description,
			"images":        pq.StringArray(nonNil(l.Images)),
			"status":        string(l.Status),
			"submitted_at":  l.SubmittedAt,
		}).
		Returning(columns(listingColumns...)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build business insert query", err)
	}

	created, err := scanListing(a.client.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, apperrors.NewExternalError("failed to create business", err)
	}
	return created, nil
}

// GetByID retrieves a listing by ID
func (a *ListingAdapter) GetByID(ctx context.Context, id string) (*entities.Listing, error) {
	query, args, err := a.db.From(listingsTable).
		Select(columns(listingColumns...)...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build business query", err)
	}

	l, err := scanListing(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("business with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewExternalError("failed to get business", err)
	}
	return l, nil
}

// ListByStatus retrieves listings in a moderation state, newest first
func (a *ListingAdapter) ListByStatus(ctx context.Context, status entities.ListingStatus) ([]*entities.Listing, error) {
	return a.queryListings(ctx, a.db.From(listingsTable).
		Select(columns(listingColumns...)...).
		Where(goqu.C("status").Eq(string(status))).
		Order(goqu.C("submitted_at").Desc()))
}

// Approve marks the listing approved and inserts its Service in one transaction
func (a *ListingAdapter) Approve(ctx context.Context, id string, defaults entities.PromotionDefaults) (*entities.Listing, *entities.Service, error) {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return nil, nil, apperrors.NewExternalError("failed to begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lockQuery, lockArgs, err := a.db.From(listingsTable).
		Select(columns(listingColumns...)...).
		Where(goqu.C("id").Eq(id)).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to build business lock query", err)
	}

	listing, err := scanListing(tx.QueryRowContext(ctx, lockQuery, lockArgs...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperrors.NewNotFoundError(fmt.Sprintf("business with id %s not found", id))
	}
	if err != nil {
		return nil, nil, apperrors.NewExternalError("failed to load business", err)
	}

	if listing.Status == entities.ListingStatusRejected {
		return nil, nil, apperrors.NewConflictError("a rejected business cannot be approved")
	}

	// Promotion happens once. A later approve returns the existing Service
	// and never recreates one an admin has deleted.
	if listing.PromotedAt != nil {
		service, err := a.promotedService(ctx, tx, listing.ID)
		if err != nil {
			return nil, nil, err
		}
		return listing, service, nil
	}

	service, err := a.promote(ctx, tx, listing, defaults)
	if err != nil {
		return nil, nil, err
	}

	promotedAt := time.Now().UTC()
	updateQuery, updateArgs, err := a.db.Update(listingsTable).
		Set(goqu.Record{
			"status":      string(entities.ListingStatusApproved),
			"promoted_at": promotedAt,
		}).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to build business update query", err)
	}
	if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
		return nil, nil, apperrors.NewExternalError("failed to approve business", err)
	}
	listing.Status = entities.ListingStatusApproved
	listing.PromotedAt = &promotedAt

	if err := tx.Commit(); err != nil {
		return nil, nil, apperrors.NewExternalError("failed to commit approval", err)
	}
	committed = true

	return listing, service, nil
}

// promote inserts the listing's Service unless one already exists for it
func (a *ListingAdapter) promote(ctx context.Context, tx *sql.Tx, listing *entities.Listing, defaults entities.PromotionDefaults) (*entities.Service, error) {
	s := entities.ServiceFromListing(listing, defaults)
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt

	insertQuery, insertArgs, err := a.db.Insert(servicesTable).
		Rows(serviceRecord(s)).
		OnConflict(goqu.DoNothing()).
		Returning(columns(serviceColumns...)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build service insert query", err)
	}

	created, err := scanService(tx.QueryRowContext(ctx, insertQuery, insertArgs...))
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewExternalError("failed to promote business", err)
	}

	// Nothing inserted: a Service for this listing already exists.
	return a.promotedService(ctx, tx, listing.ID)
}

func (a *ListingAdapter) promotedService(ctx context.Context, tx *sql.Tx, listingID string) (*entities.Service, error) {
	query, args, err := a.db.From(servicesTable).
		Select(columns(serviceColumns...)...).
		Where(goqu.C("source_listing_id").Eq(listingID)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build service query", err)
	}
	existing, err := scanService(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewConflictError("the service promoted from this business has been removed")
	}
	if err != nil {
		return nil, apperrors.NewExternalError("failed to load promoted service", err)
	}
	return existing, nil
}

// Reject moves a pending listing to rejected
func (a *ListingAdapter) Reject(ctx context.Context, id string) (*entities.Listing, error) {
	query, args, err := a.db.Update(listingsTable).
		Set(goqu.Record{"status": string(entities.ListingStatusRejected)}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("status").In(string(entities.ListingStatusPending), string(entities.ListingStatusRejected)),
		).
		Returning(columns(listingColumns...)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build business reject query", err)
	}

	l, err := scanListing(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewExternalError("failed to reject business", err)
	}

	// Either missing or already approved; tell the two apart.
	if _, getErr := a.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, apperrors.NewConflictError("an approved business cannot be rejected")
}

// ListApprovedWithoutService finds approved listings that were never
// promoted. Services created before promotion was tracked are matched by
// name and phone.
func (a *ListingAdapter) ListApprovedWithoutService(ctx context.Context) ([]*entities.Listing, error) {
	b := goqu.T("b")
	s := goqu.T("s")

	cols := make([]any, len(listingColumns))
	for i, c := range listingColumns {
		cols[i] = b.Col(c)
	}

	ds := a.db.From(goqu.T(listingsTable).As("b")).
		Select(cols...).
		LeftJoin(goqu.T(servicesTable).As("s"), goqu.On(goqu.Or(
			s.Col("source_listing_id").Eq(b.Col("id")),
			goqu.And(
				s.Col("source_listing_id").IsNull(),
				s.Col("name").Eq(b.Col("business_name")),
				s.Col("phone").Eq(b.Col("phone")),
			),
		))).
		Where(
			b.Col("status").Eq(string(entities.ListingStatusApproved)),
			b.Col("promoted_at").IsNull(),
			s.Col("id").IsNull(),
		).
		Order(b.Col("submitted_at").Asc())

	return a.queryListings(ctx, ds)
}
