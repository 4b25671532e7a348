package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/postgres"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

const servicesTable = "services"

var serviceColumns = []string{
	"id", "name", "category", "description", "about", "location", "rating",
	"images", "phone", "email", "owner", "source_listing_id", "created_at", "updated_at",
}

// ServiceAdapter implements the ServiceRepository interface
type ServiceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewServiceAdapter creates a new service adapter
func NewServiceAdapter(client *postgres.Client) *ServiceAdapter {
	return &ServiceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.ServiceRepository = (*ServiceAdapter)(nil)

func scanService(row rowScanner) (*entities.Service, error) {
	s := &entities.Service{}
	var images pq.StringArray
	var source sql.NullString
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Category,
		&s.Description,
		&s.About,
		&s.Location,
		&s.Rating,
		&images,
		&s.Contact.Phone,
		&s.Contact.Email,
		&s.Owner,
		&source,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Images = []string(images)
	if s.Images == nil {
		s.Images = []string{}
	}
	if source.Valid {
		s.SourceListingID = &source.String
	}
	return s, nil
}

func serviceRecord(s *entities.Service) goqu.Record {
	var source any
	if s.SourceListingID != nil {
		source = *s.SourceListingID
	}
	return goqu.Record{
		"id":                s.ID,
		"name":              trimmed(s.Name),
		"category":          s.Category,
		"description":       s.Description,
		"about":             s.About,
		"location":          s.Location,
		"rating":            s.Rating,
		"images":            pq.StringArray(nonNil(s.Images)),
		"phone":             s.Contact.Phone,
		"email":             s.Contact.Email,
		"owner":             s.Owner,
		"source_listing_id": source,
		"created_at":        s.CreatedAt,
		"updated_at":        s.UpdatedAt,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// List retrieves services newest first
func (a *ServiceAdapter) List(ctx context.Context, filter repositories.ServiceFilter) ([]*entities.Service, error) {
	ds := a.db.From(servicesTable).Select(columns(serviceColumns...)...).Order(goqu.C("created_at").Desc())
	if filter.Category != "" && filter.Category != entities.CategoryAll {
		ds = ds.Where(goqu.C("category").Eq(filter.Category))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build services query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to list services", err)
	}
	defer rows.Close()

	services := []*entities.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan service", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to list services", err)
	}

	return services, nil
}

// GetByID retrieves a service by ID
func (a *ServiceAdapter) GetByID(ctx context.Context, id string) (*entities.Service, error) {
	query, args, err := a.db.From(servicesTable).
		Select(columns(serviceColumns...)...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build service query", err)
	}

	s, err := scanService(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("service with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewExternalError("failed to get service", err)
	}
	return s, nil
}

// Create inserts a service and returns the stored row
func (a *ServiceAdapter) Create(ctx context.Context, service *entities.Service) (*entities.Service, error) {
	if service == nil {
		return nil, apperrors.NewInternalError("service is nil", fmt.Errorf("service is nil"))
	}

	s := *service
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query, args, err := a.db.Insert(servicesTable).
		Rows(serviceRecord(&s)).
		Returning(columns(serviceColumns...)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build service insert query", err)
	}

	created, err := scanService(a.client.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("service already exists")
		}
		return nil, apperrors.NewExternalError("failed to create service", err)
	}
	return created, nil
}

// Update applies a partial update and returns the stored row
func (a *ServiceAdapter) Update(ctx context.Context, id string, patch entities.ServicePatch) (*entities.Service, error) {
	if patch.IsEmpty() {
		return a.GetByID(ctx, id)
	}

	record := goqu.Record{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		record["name"] = trimmed(*patch.Name)
	}
	if patch.Category != nil {
		record["category"] = *patch.Category
	}
	if patch.Description != nil {
		record["description"] = *patch.Description
	}
	if patch.About != nil {
		record["about"] = *patch.About
	}
	if patch.Location != nil {
		record["location"] = *patch.Location
	}
	if patch.Rating != nil {
		record["rating"] = *patch.Rating
	}
	if patch.Images != nil {
		record["images"] = pq.StringArray(nonNil(*patch.Images))
	}
	if patch.Phone != nil {
		record["phone"] = *patch.Phone
	}
	if patch.Email != nil {
		record["email"] = *patch.Email
	}

	query, args, err := a.db.Update(servicesTable).
		Set(record).
		Where(goqu.C("id").Eq(id)).
		Returning(columns(serviceColumns...)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build service update query", err)
	}

	updated, err := scanService(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("service with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewExternalError("failed to update service", err)
	}
	return updated, nil
}

// Delete deletes a service
func (a *ServiceAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(servicesTable).Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build service delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewExternalError("failed to delete service", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("service with id %s not found", id))
	}
	return nil
}
