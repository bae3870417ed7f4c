package attendees

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when deleting an attendee that does not exist.
var ErrNotFound = errors.New("attendee not found")

// Repository persists attendees. Lookups return nil, nil on a miss.
type Repository interface {
	Upsert(ctx context.Context, attendee *Attendee) (*Attendee, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Attendee, error)
	GetByTicketID(ctx context.Context, ticketID string) (*Attendee, error)
	GetByEmail(ctx context.Context, email string) (*Attendee, error)
	List(ctx context.Context, filter ListFilter) ([]Attendee, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreateImportBatch(ctx context.Context, batch *ImportBatch) error
	ListImportBatches(ctx context.Context, limit int) ([]ImportBatch, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Upsert inserts the attendee or, when the ticket ID already exists, updates
// its name (and email when one is given). The stored row is returned.
func (r *gormRepository) Upsert(ctx context.Context, attendee *Attendee) (*Attendee, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticket_id"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "name"}, Value: gorm.Expr("excluded.name")},
			{Column: clause.Column{Name: "email"}, Value: gorm.Expr("COALESCE(excluded.email, attendees.email)")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		},
	}).Create(attendee).Error
	if err != nil {
		return nil, err
	}
	return r.GetByTicketID(ctx, attendee.TicketID)
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Attendee, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *gormRepository) GetByTicketID(ctx context.Context, ticketID string) (*Attendee, error) {
	return r.first(ctx, "ticket_id = ?", ticketID)
}

func (r *gormRepository) GetByEmail(ctx context.Context, email string) (*Attendee, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *gormRepository) first(ctx context.Context, query string, args ...interface{}) (*Attendee, error) {
	var attendee Attendee
	err := r.db.WithContext(ctx).Where(query, args...).First(&attendee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attendee, nil
}

func (r *gormRepository) List(ctx context.Context, filter ListFilter) ([]Attendee, int64, error) {
	query := r.db.WithContext(ctx).Model(&Attendee{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(ticket_id) LIKE ? OR email LIKE ?", like, like, like)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var attendees []Attendee
	page := query.Order("created_at DESC").Order("ticket_id")
	if filter.PageSize > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.PageSize
		}
		page = page.Limit(filter.PageSize).Offset(offset)
	}
	if err := page.Find(&attendees).Error; err != nil {
		return nil, 0, err
	}
	return attendees, count, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Attendee{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepository) CreateImportBatch(ctx context.Context, batch *ImportBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *gormRepository) ListImportBatches(ctx context.Context, limit int) ([]ImportBatch, error) {
	var batches []ImportBatch
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&batches).Error
	return batches, err
}
