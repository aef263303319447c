package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/internal/notifications"
	"github.com/bjaksic84/rentmate-backend/pkg/db"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// maxPrice is the largest value a numeric(10,2) column holds.
var maxPrice = decimal.RequireFromString("99999999.99")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the item catalog.
type Service interface {
	CreateItem(ctx context.Context, ownerID uuid.UUID, input CreateItemInput) (*ItemDTO, error)
	UpdateItem(ctx context.Context, ownerID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	GetItem(ctx context.Context, viewerID, itemID uuid.UUID) (*ItemDTO, error)
	ListAvailable(ctx context.Context, input ListAvailableInput) (*ItemListResult, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*ItemListResult, error)
	ToggleListing(ctx context.Context, ownerID, itemID uuid.UUID) (*ItemDTO, error)
}

// CreateItemInput holds the payload to create an item.
type CreateItemInput struct {
	Title       string
	Description string
	Price       *decimal.Decimal
	Category    *string
	Location    *string
	ImageURL    *string
}

// UpdateItemInput holds optional item mutations. ClearPrice removes the price.
type UpdateItemInput struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	ClearPrice  bool
	Category    *string
	Location    *string
	ImageURL    *string
}

// ListAvailableInput filters the public catalog.
type ListAvailableInput struct {
	Category   string
	Query      string
	Pagination pagination.Params
}

// ItemListResult is one page of items.
type ItemListResult = pagination.Page[ItemDTO]

type service struct {
	repo     Repository
	tx       txRunner
	notifier notifications.Notifier
}

// NewService constructs the item catalog service.
func NewService(repo Repository, tx txRunner, notifier notifications.Notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("items repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		notifier = notifications.NopNotifier{}
	}
	return &service{repo: repo, tx: tx, notifier: notifier}, nil
}

func (s *service) CreateItem(ctx context.Context, ownerID uuid.UUID, input CreateItemInput) (*ItemDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return nil, err
	}
	description, err := normalizeDescription(input.Description)
	if err != nil {
		return nil, err
	}
	price, err := normalizePrice(input.Price)
	if err != nil {
		return nil, err
	}

	item := &models.Item{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Price:       price,
		Category:    trimOptional(input.Category),
		Location:    trimOptional(input.Location),
		ImageURL:    trimOptional(input.ImageURL),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, db.WrapStorage(err, "insert item")
	}
	dto := NewItemDTO(item)
	return &dto, nil
}

func (s *service) UpdateItem(ctx context.Context, ownerID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := loadItem(ctx, repo.LockByID, itemID)
		if err != nil {
			return err
		}
		if item.OwnerID != ownerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can edit this item")
		}
		if err := applyUpdate(item, input); err != nil {
			return err
		}
		if err := repo.UpdateDetails(ctx, item); err != nil {
			return db.WrapStorage(err, "update item")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, db.WrapStorage(err, "update item")
	}
	dto := NewItemDTO(updated)
	return &dto, nil
}

// GetItem returns a listed item to anyone and an unlisted one to its owner only.
func (s *service) GetItem(ctx context.Context, viewerID, itemID uuid.UUID) (*ItemDTO, error) {
	item, err := loadItem(ctx, s.repo.FindByID, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsListed && item.OwnerID != viewerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	dto := NewItemDTO(item)
	return &dto, nil
}

func (s *service) ListAvailable(ctx context.Context, input ListAvailableInput) (*ItemListResult, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListAvailable(ctx, listParams{
		Category: strings.TrimSpace(input.Category),
		Query:    strings.TrimSpace(input.Query),
		Limit:    input.Pagination.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, db.WrapStorage(err, "list available items")
	}
	page := pagination.NewPage(newItemDTOs(rows), next)
	return &page, nil
}

func (s *service) ListOwned(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*ItemListResult, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByOwner(ctx, listParams{OwnerID: ownerID, Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, db.WrapStorage(err, "list owned items")
	}
	page := pagination.NewPage(newItemDTOs(rows), next)
	return &page, nil
}

// ToggleListing flips is_listed. Rentals already in flight are untouched.
func (s *service) ToggleListing(ctx context.Context, ownerID, itemID uuid.UUID) (*ItemDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var toggled *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := loadItem(ctx, repo.LockByID, itemID)
		if err != nil {
			return err
		}
		if item.OwnerID != ownerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can change the listing")
		}
		item.IsListed = !item.IsListed
		if err := repo.SetListed(ctx, item.ID, item.IsListed); err != nil {
			return db.WrapStorage(err, "toggle listing")
		}
		toggled = item
		return nil
	})
	if err != nil {
		return nil, db.WrapStorage(err, "toggle listing")
	}

	s.notifier.Notify(ctx, toggled.OwnerID, enums.NotificationEventItemListingChanged, notifications.ItemListingChangedPayload{
		ItemID:    toggled.ID,
		ItemTitle: toggled.Title,
		IsListed:  toggled.IsListed,
	})
	dto := NewItemDTO(toggled)
	return &dto, nil
}

func loadItem(ctx context.Context, find func(context.Context, uuid.UUID) (*models.Item, error), itemID uuid.UUID) (*models.Item, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := find(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, db.WrapStorage(err, "load item")
	}
	return item, nil
}

func applyUpdate(item *models.Item, input UpdateItemInput) error {
	if input.Title != nil {
		title, err := normalizeTitle(*input.Title)
		if err != nil {
			return err
		}
		item.Title = title
	}
	if input.Description != nil {
		description, err := normalizeDescription(*input.Description)
		if err != nil {
			return err
		}
		item.Description = description
	}
	if input.ClearPrice {
		item.Price = decimal.NullDecimal{}
	} else if input.Price != nil {
		price, err := normalizePrice(input.Price)
		if err != nil {
			return err
		}
		item.Price = price
	}
	if input.Category != nil {
		item.Category = trimOptional(input.Category)
	}
	if input.Location != nil {
		item.Location = trimOptional(input.Location)
	}
	if input.ImageURL != nil {
		item.ImageURL = trimOptional(input.ImageURL)
	}
	return nil
}

func normalizeTitle(value string) (string, error) {
	title := strings.TrimSpace(value)
	if title == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	return title, nil
}

func normalizeDescription(value string) (string, error) {
	description := strings.TrimSpace(value)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	return description, nil
}

func normalizePrice(value *decimal.Decimal) (decimal.NullDecimal, error) {
	if value == nil {
		return decimal.NullDecimal{}, nil
	}
	if value.IsNegative() {
		return decimal.NullDecimal{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	price := value.Round(2)
	if price.GreaterThan(maxPrice) {
		return decimal.NullDecimal{}, pkgerrors.New(pkgerrors.CodeValidation, "price is too large")
	}
	return decimal.NewNullDecimal(price), nil
}

// trimOptional treats blank strings as absent.
func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
