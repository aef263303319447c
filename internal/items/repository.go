package items

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/internal/repo"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

// Repository defines item persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	UpdateDetails(ctx context.Context, item *models.Item) error
	SetListed(ctx context.Context, id uuid.UUID, listed bool) error
	ListAvailable(ctx context.Context, params listParams) ([]models.Item, *pagination.Cursor, error)
	ListByOwner(ctx context.Context, params listParams) ([]models.Item, *pagination.Cursor, error)
}

type listParams struct {
	OwnerID  uuid.UUID
	Category string
	Query    string
	Limit    int
	Cursor   *pagination.Cursor
}

type repository struct {
	base repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, item *models.Item) error {
	return r.base.DB(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return r.base.FindItem(ctx, id)
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return r.base.LockItem(ctx, id)
}

// UpdateDetails writes the owner-editable columns only. Listing, rental and
// review columns are owned by their own commands.
func (r *repository) UpdateDetails(ctx context.Context, item *models.Item) error {
	return r.base.DB(ctx).
		Model(item).
		Select("title", "description", "price", "category", "location", "image_url", "updated_at").
		Updates(item).Error
}

func (r *repository) SetListed(ctx context.Context, id uuid.UUID, listed bool) error {
	return r.base.DB(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_listed": listed}).Error
}

func (r *repository) ListAvailable(ctx context.Context, params listParams) ([]models.Item, *pagination.Cursor, error) {
	query := r.base.DB(ctx).Model(&models.Item{}).Where("is_listed = ? AND is_rented = ?", true, false)
	if params.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(params.Category))
	}
	if params.Query != "" {
		like := "%" + escapeLike(strings.ToLower(params.Query)) + "%"
		query = query.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, like, like)
	}
	return r.page(query, params)
}

func (r *repository) ListByOwner(ctx context.Context, params listParams) ([]models.Item, *pagination.Cursor, error) {
	query := r.base.DB(ctx).Model(&models.Item{}).Where("owner_id = ?", params.OwnerID)
	return r.page(query, params)
}

func (r *repository) page(query *gorm.DB, params listParams) ([]models.Item, *pagination.Cursor, error) {
	query = repo.AfterCursor(query, "", params.Cursor)

	var rows []models.Item
	if err := repo.NewestFirst(query, "").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(item models.Item) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	})
	return page, next, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
