package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// Bind returns a Base bound to tx, or the receiver when tx is nil.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// ForUpdate scopes the next query to lock the selected rows until the
// surrounding transaction ends. SQLite ignores the clause and serializes
// writers at the database level instead.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	return b.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

// LockItem loads an item and holds its row lock for the transaction.
func (b Base) LockItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := b.ForUpdate(ctx).Where("id = ?", itemID).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItem loads an item without locking.
func (b Base) FindItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := b.DB(ctx).Where("id = ?", itemID).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// AfterCursor restricts a (created_at DESC, id DESC) listing to rows after cursor.
func AfterCursor(query *gorm.DB, table string, cursor *pagination.Cursor) *gorm.DB {
	if cursor == nil {
		return query
	}
	col := func(name string) string {
		if table == "" {
			return name
		}
		return table + "." + name
	}
	return query.Where(
		"("+col("created_at")+" < ?) OR ("+col("created_at")+" = ? AND "+col("id")+" < ?)",
		cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
	)
}

// NewestFirst orders a listing to match AfterCursor.
func NewestFirst(query *gorm.DB, table string) *gorm.DB {
	if table == "" {
		return query.Order("created_at DESC").Order("id DESC")
	}
	return query.Order(table + ".created_at DESC").Order(table + ".id DESC")
}
