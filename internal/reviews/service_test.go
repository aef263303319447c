package reviews

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memRepo struct {
	items      map[uuid.UUID]*models.Item
	reviews    map[uuid.UUID]*models.Review
	completed  map[[2]uuid.UUID]uuid.UUID
	createErr  error
	aggregates int
}

func newMemRepo() *memRepo {
	return &memRepo{
		items:     map[uuid.UUID]*models.Item{},
		reviews:   map[uuid.UUID]*models.Review{},
		completed: map[[2]uuid.UUID]uuid.UUID{},
	}
}

func (r *memRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *memRepo) LockItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	return r.FindItem(ctx, itemID)
}

func (r *memRepo) FindItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *item
	return &clone, nil
}

func (r *memRepo) LatestCompletedRental(ctx context.Context, itemID, renterID uuid.UUID) (*uuid.UUID, error) {
	id, ok := r.completed[[2]uuid.UUID{itemID, renterID}]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (r *memRepo) FindActive(ctx context.Context, itemID, reviewerID uuid.UUID) (*models.Review, error) {
	for _, review := range r.reviews {
		if review.ItemID == itemID && review.ReviewerID == reviewerID && !review.IsDeleted {
			clone := *review
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) Create(ctx context.Context, review *models.Review) error {
	if r.createErr != nil {
		return r.createErr
	}
	review.ID = uuid.New()
	clone := *review
	r.reviews[review.ID] = &clone
	return nil
}

func (r *memRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, ok := r.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *review
	return &clone, nil
}

func (r *memRepo) UpdateContent(ctx context.Context, review *models.Review) error {
	clone := *review
	r.reviews[review.ID] = &clone
	return nil
}

func (r *memRepo) SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error {
	r.reviews[id].IsDeleted = true
	r.reviews[id].DeletedAt = &now
	return nil
}

func (r *memRepo) Aggregate(ctx context.Context, itemID uuid.UUID) (Aggregate, error) {
	var count, sum int64
	for _, review := range r.reviews {
		if review.ItemID == itemID && !review.IsDeleted {
			count++
			sum += int64(review.Rating)
		}
	}
	if count == 0 {
		return Aggregate{}, nil
	}
	avg := float64(sum) / float64(count)
	return Aggregate{Count: count, Average: &avg}, nil
}

func (r *memRepo) WriteAggregate(ctx context.Context, itemID uuid.UUID, agg Aggregate) error {
	r.aggregates++
	r.items[itemID].ReviewCount = int(agg.Count)
	r.items[itemID].AverageRating = agg.Average
	return nil
}

func (r *memRepo) ListByItem(ctx context.Context, itemID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, *pagination.Cursor, error) {
	var out []models.Review
	for _, review := range r.reviews {
		if review.ItemID == itemID && !review.IsDeleted {
			out = append(out, *review)
		}
	}
	return out, nil, nil
}

func (r *memRepo) addItem() *models.Item {
	item := &models.Item{ID: uuid.New(), OwnerID: uuid.New(), Title: "Canoe", IsListed: true}
	r.items[item.ID] = item
	return item
}

func (r *memRepo) completeRental(item *models.Item, renterID uuid.UUID) uuid.UUID {
	id := uuid.New()
	r.completed[[2]uuid.UUID{item.ID, renterID}] = id
	return id
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if got := pkgerrors.CodeOf(err); got != code {
		t.Fatalf("expected %s error, got %s (%v)", code, got, err)
	}
}

func TestSubmitReviewThenDuplicate(t *testing.T) {
	repo := newMemRepo()
	item := repo.addItem()
	reviewer := uuid.New()
	rentalID := repo.completeRental(item, reviewer)
	svc := newTestService(t, repo)

	dto, err := svc.SubmitReview(context.Background(), SubmitReviewInput{ItemID: item.ID, ReviewerID: reviewer, Rating: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.RentalID == nil || *dto.RentalID != rentalID {
		t.Fatalf("expected originating rental %s, got %v", rentalID, dto.RentalID)
	}
	if dto.ItemRating == nil || dto.ItemRating.ReviewCount != 1 || *dto.ItemRating.AverageRating != 4 {
		t.Fatalf("unexpected aggregate %+v", dto.ItemRating)
	}
	if repo.items[item.ID].ReviewCount != 1 {
		t.Fatal("expected item aggregate written")
	}

	_, err = svc.SubmitReview(context.Background(), SubmitReviewInput{ItemID: item.ID, ReviewerID: reviewer, Rating: 5})
	expectCode(t, err, pkgerrors.CodeDuplicate)
}

func TestSubmitReviewRejections(t *testing.T) {
	repo := newMemRepo()
	item := repo.addItem()
	svc := newTestService(t, repo)

	cases := []struct {
		name  string
		input SubmitReviewInput
		code  pkgerrors.Code
	}{
		{name: "ratingTooLow", input: SubmitReviewInput{ItemID: item.ID, ReviewerID: uuid.New(), Rating: 0}, code: pkgerrors.CodeValidation},
		{name: "ratingTooHigh", input: SubmitReviewInput{ItemID: item.ID, ReviewerID: uuid.New(), Rating: 6}, code: pkgerrors.CodeValidation},
		{name: "missingItem", input: SubmitReviewInput{ItemID: uuid.New(), ReviewerID: uuid.New(), Rating: 3}, code: pkgerrors.CodeNotFound},
		{name: "owner", input: SubmitReviewInput{ItemID: item.ID, ReviewerID: item.OwnerID, Rating: 3}, code: pkgerrors.CodeForbidden},
		{name: "noCompletedRental", input: SubmitReviewInput{ItemID: item.ID, ReviewerID: uuid.New(), Rating: 3}, code: pkgerrors.CodeNotEligible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitReview(context.Background(), tc.input)
			expectCode(t, err, tc.code)
		})
	}
	if repo.aggregates != 0 {
		t.Fatal("rejected submissions must not touch aggregates")
	}
}

func TestSubmitReviewConcurrentInsertMapsToDuplicate(t *testing.T) {
	repo := newMemRepo()
	item := repo.addItem()
	reviewer := uuid.New()
	repo.completeRental(item, reviewer)
	repo.createErr = errors.New(`ERROR: duplicate key value violates unique constraint "ux_reviews_active_reviewer_item" (SQLSTATE 23505)`)
	svc := newTestService(t, repo)

	_, err := svc.SubmitReview(context.Background(), SubmitReviewInput{ItemID: item.ID, ReviewerID: reviewer, Rating: 3})
	expectCode(t, err, pkgerrors.CodeDuplicate)
}

func TestEditReviewAuthorOnlyAndRecomputes(t *testing.T) {
	repo := newMemRepo()
	item := repo.addItem()
	reviewer := uuid.New()
	repo.completeRental(item, reviewer)
	svc := newTestService(t, repo)

	created, err := svc.SubmitReview(context.Background(), SubmitReviewInput{ItemID: item.ID, ReviewerID: reviewer, Rating: 2})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	rating := 5
	_, err = svc.EditReview(context.Background(), created.ID, uuid.New(), EditReviewInput{Rating: &rating})
	expectCode(t, err, pkgerrors.CodeForbidden)

	anonymous := true
	title := "  Great canoe "
	edited, err := svc.EditReview(context.Background(), created.ID, reviewer, EditReviewInput{Rating: &rating, Title: &title, Anonymous: &anonymous})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Rating != 5 || !edited.IsAnonymous || edited.Title == nil || *edited.Title != "Great canoe" {
		t.Fatalf("unexpected edit result %+v", edited)
	}
	if avg := repo.items[item.ID].AverageRating; avg == nil || *avg != 5 {
		t.Fatalf("expected average 5, got %v", avg)
	}

	bad := 9
	_, err = svc.EditReview(context.Background(), created.ID, reviewer, EditReviewInput{Rating: &bad})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestDeleteReviewRoundTripClearsAggregates(t *testing.T) {
	repo := newMemRepo()
	item := repo.addItem()
	svc := newTestService(t, repo)

	var ids []uuid.UUID
	var authors []uuid.UUID
	for _, rating := range []int{5, 4, 4} {
		reviewer := uuid.New()
		repo.completeRental(item, reviewer)
		dto, err := svc.SubmitReview(context.Background(), SubmitReviewInput{ItemID: item.ID, ReviewerID: reviewer, Rating: rating})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids = append(ids, dto.ID)
		authors = append(authors, reviewer)
	}
	if repo.items[item.ID].ReviewCount != 3 {
		t.Fatalf("expected 3 reviews, got %d", repo.items[item.ID].ReviewCount)
	}
	if avg := repo.items[item.ID].AverageRating; avg == nil || *avg != 4.33 {
		t.Fatalf("expected average rounded to 4.33, got %v", avg)
	}

	_, err := svc.DeleteReview(context.Background(), ids[0], uuid.New(), false)
	expectCode(t, err, pkgerrors.CodeForbidden)

	if _, err := svc.DeleteReview(context.Background(), ids[0], uuid.New(), true); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	for i := 1; i < len(ids); i++ {
		if _, err := svc.DeleteReview(context.Background(), ids[i], authors[i], false); err != nil {
			t.Fatalf("author delete: %v", err)
		}
	}
	if repo.items[item.ID].ReviewCount != 0 || repo.items[item.ID].AverageRating != nil {
		t.Fatalf("expected empty aggregate, got %d/%v", repo.items[item.ID].ReviewCount, repo.items[item.ID].AverageRating)
	}

	_, err = svc.DeleteReview(context.Background(), ids[1], authors[1], false)
	expectCode(t, err, pkgerrors.CodeNotFound)
	_, err = svc.EditReview(context.Background(), ids[1], authors[1], EditReviewInput{})
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestListItemReviewsHidesAnonymousReviewer(t *testing.T) {
	repo := newMemRepo()
	item := repo.addItem()
	reviewer := uuid.New()
	repo.completeRental(item, reviewer)
	svc := newTestService(t, repo)

	if _, err := svc.SubmitReview(context.Background(), SubmitReviewInput{ItemID: item.ID, ReviewerID: reviewer, Rating: 3, Anonymous: true}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	page, err := svc.ListItemReviews(context.Background(), item.ID, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ReviewerID != nil {
		t.Fatalf("expected anonymous reviewer hidden, got %+v", page.Items)
	}

	mine, err := svc.MyReviewForItem(context.Background(), item.ID, reviewer)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if mine.ReviewerID == nil || *mine.ReviewerID != reviewer {
		t.Fatal("author view keeps the reviewer")
	}

	_, err = svc.MyReviewForItem(context.Background(), item.ID, uuid.New())
	expectCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.ListItemReviews(context.Background(), uuid.New(), pagination.Params{})
	expectCode(t, err, pkgerrors.CodeNotFound)
}
