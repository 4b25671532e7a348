package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/postgres"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

const reviewsTable = "reviews"

var reviewColumns = []string{"id", "name", "email", "review", "rating", "approved", "created_at"}

// ReviewAdapter implements review persistence in Postgres.
type ReviewAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReviewAdapter creates a new review adapter.
func NewReviewAdapter(client *postgres.Client) *ReviewAdapter {
	return &ReviewAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.ReviewRepository = (*ReviewAdapter)(nil)

func scanReview(row rowScanner) (*entities.Review, error) {
	r := &entities.Review{}
	var email sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &email, &r.Review, &r.Rating, &r.Approved, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Email = email.String
	return r, nil
}

// Create inserts an unapproved review.
func (a *ReviewAdapter) Create(ctx context.Context, review *entities.Review) (*entities.Review, error) {
	if review == nil {
		return nil, apperrors.NewInternalError("review is nil", fmt.Errorf("review is nil"))
	}

	r := *review
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	query, args, err := a.db.Insert(reviewsTable).
		Rows(goqu.Record{
			"id":         r.ID,
			"name":       trimmed(r.Name),
			"email":      sql.NullString{String: trimmed(r.Email), Valid: trimmed(r.Email) != ""},
			"review":     trimmed(r.Review),
			"rating":     r.Rating,
			"approved":   false,
			"created_at": r.CreatedAt,
		}).
		Returning(columns(reviewColumns...)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build review insert query", err)
	}

	created, err := scanReview(a.client.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, apperrors.NewExternalError("failed to create review", err)
	}
	return created, nil
}

// List retrieves reviews newest first.
func (a *ReviewAdapter) List(ctx context.Context, approvedOnly bool) ([]*entities.Review, error) {
	ds := a.db.From(reviewsTable).Select(columns(reviewColumns...)...).Order(goqu.C("created_at").Desc())
	if approvedOnly {
		ds = ds.Where(goqu.C("approved").IsTrue())
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build reviews query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to list reviews", err)
	}
	defer rows.Close()

	reviews := []*entities.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan review", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to list reviews", err)
	}
	return reviews, nil
}

// Update applies a moderation change to a review.
func (a *ReviewAdapter) Update(ctx context.Context, id string, patch entities.ReviewPatch) (*entities.Review, error) {
	record := goqu.Record{}
	if patch.Approved != nil {
		record["approved"] = *patch.Approved
	}
	if len(record) == 0 {
		return nil, apperrors.NewValidationError("nothing to update")
	}

	query, args, err := a.db.Update(reviewsTable).
		Set(record).
		Where(goqu.C("id").Eq(id)).
		Returning(columns(reviewColumns...)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build review update query", err)
	}

	updated, err := scanReview(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("review with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewExternalError("failed to update review", err)
	}
	return updated, nil
}

// Delete removes a review.
func (a *ReviewAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(reviewsTable).Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build review delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewExternalError("failed to delete review", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("review with id %s not found", id))
	}
	return nil
}
