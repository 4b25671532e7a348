package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/postgres"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

const leadsTable = "popup_leads"

var leadColumns = []string{"id", "name", "phone", "email", "created_at"}

// LeadAdapter implements popup lead persistence in Postgres.
type LeadAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewLeadAdapter creates a new lead adapter.
func NewLeadAdapter(client *postgres.Client) repositories.LeadRepository {
	return &LeadAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanLead(row rowScanner) (*entities.Lead, error) {
	l := &entities.Lead{}
	var email sql.NullString
	if err := row.Scan(&l.ID, &l.Name, &l.Phone, &email, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Email = email.String
	return l, nil
}

// Create inserts a lead.
func (a *LeadAdapter) Create(ctx context.Context, lead *entities.Lead) (*entities.Lead, error) {
	if lead == nil {
		return nil, apperrors.NewInternalError("lead is nil", fmt.Errorf("lead is nil"))
	}

	l := *lead
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	query, args, err := a.db.Insert(leadsTable).
		Rows(goqu.Record{
			"id":         l.ID,
			"name":       trimmed(l.Name),
			"phone":      trimmed(l.Phone),
			"email":      sql.NullString{String: trimmed(l.Email), Valid: trimmed(l.Email) != ""},
			"created_at": l.CreatedAt,
		}).
		Returning(columns(leadColumns...)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build lead insert query", err)
	}

	created, err := scanLead(a.client.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, apperrors.NewExternalError("failed to create lead", err)
	}
	return created, nil
}

// List retrieves leads newest first.
func (a *LeadAdapter) List(ctx context.Context) ([]*entities.Lead, error) {
	query, args, err := a.db.From(leadsTable).
		Select(columns(leadColumns...)...).
		Order(goqu.C("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build leads query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to list leads", err)
	}
	defer rows.Close()

	leads := []*entities.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan lead", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to list leads", err)
	}
	return leads, nil
}
