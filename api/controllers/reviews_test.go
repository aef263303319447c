package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaksic84/rentmate-backend/internal/reviews"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/pagination"
)

type stubReviewsService struct {
	submitFn func(ctx context.Context, input reviews.SubmitReviewInput) (*reviews.ReviewDTO, error)
	editFn   func(ctx context.Context, reviewID, actingUserID uuid.UUID, input reviews.EditReviewInput) (*reviews.ReviewDTO, error)
	deleteFn func(ctx context.Context, reviewID, actingUserID uuid.UUID, isAdmin bool) (*reviews.AggregateDTO, error)
	listFn   func(ctx context.Context, itemID uuid.UUID, params pagination.Params) (*reviews.ReviewListResult, error)
	mineFn   func(ctx context.Context, itemID, reviewerID uuid.UUID) (*reviews.ReviewDTO, error)
}

func (s *stubReviewsService) SubmitReview(ctx context.Context, input reviews.SubmitReviewInput) (*reviews.ReviewDTO, error) {
	return s.submitFn(ctx, input)
}

func (s *stubReviewsService) EditReview(ctx context.Context, reviewID, actingUserID uuid.UUID, input reviews.EditReviewInput) (*reviews.ReviewDTO, error) {
	return s.editFn(ctx, reviewID, actingUserID, input)
}

func (s *stubReviewsService) DeleteReview(ctx context.Context, reviewID, actingUserID uuid.UUID, isAdmin bool) (*reviews.AggregateDTO, error) {
	return s.deleteFn(ctx, reviewID, actingUserID, isAdmin)
}

func (s *stubReviewsService) ListItemReviews(ctx context.Context, itemID uuid.UUID, params pagination.Params) (*reviews.ReviewListResult, error) {
	return s.listFn(ctx, itemID, params)
}

func (s *stubReviewsService) MyReviewForItem(ctx context.Context, itemID, reviewerID uuid.UUID) (*reviews.ReviewDTO, error) {
	return s.mineFn(ctx, itemID, reviewerID)
}

func TestSubmitReviewCreates(t *testing.T) {
	reviewer := uuid.New()
	itemID := uuid.New()
	svc := &stubReviewsService{
		submitFn: func(ctx context.Context, input reviews.SubmitReviewInput) (*reviews.ReviewDTO, error) {
			assert.Equal(t, itemID, input.ItemID)
			assert.Equal(t, reviewer, input.ReviewerID)
			assert.Equal(t, 4, input.Rating)
			assert.True(t, input.Anonymous)
			require.NotNil(t, input.Title)
			assert.Equal(t, "Great drill", *input.Title)
			avg := 4.0
			return &reviews.ReviewDTO{ID: uuid.New(), Rating: 4, ItemRating: &reviews.AggregateDTO{ReviewCount: 1, AverageRating: &avg}}, nil
		},
	}

	req := asUser(newRequest(http.MethodPost, "/", `{"rating":4,"title":"  Great drill ","anonymous":true}`), reviewer)
	req = addRouteParam(req, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	SubmitReview(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var dto reviews.ReviewDTO
	decodeData(t, resp, &dto)
	require.NotNil(t, dto.ItemRating)
	assert.EqualValues(t, 1, dto.ItemRating.ReviewCount)
}

func TestSubmitReviewValidatesRating(t *testing.T) {
	for _, body := range []string{`{"rating":0}`, `{"rating":6}`, `{}`} {
		req := addRouteParam(asUser(newRequest(http.MethodPost, "/", body), uuid.New()), "itemId", uuid.NewString())
		resp := httptest.NewRecorder()
		SubmitReview(&stubReviewsService{}, testLogger())(resp, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code, body)
	}
}

func TestSubmitReviewNotEligible(t *testing.T) {
	svc := &stubReviewsService{
		submitFn: func(ctx context.Context, input reviews.SubmitReviewInput) (*reviews.ReviewDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "a completed rental is required")
		},
	}
	req := addRouteParam(asUser(newRequest(http.MethodPost, "/", `{"rating":5}`), uuid.New()), "itemId", uuid.NewString())
	resp := httptest.NewRecorder()
	SubmitReview(svc, testLogger())(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeNotEligible), errorCode(t, resp))
}

func TestDeleteReviewPassesAdminFlag(t *testing.T) {
	reviewID := uuid.New()
	var gotAdmin []bool
	svc := &stubReviewsService{
		deleteFn: func(ctx context.Context, id, actor uuid.UUID, isAdmin bool) (*reviews.AggregateDTO, error) {
			assert.Equal(t, reviewID, id)
			gotAdmin = append(gotAdmin, isAdmin)
			return &reviews.AggregateDTO{}, nil
		},
	}

	for _, req := range []*http.Request{
		asUser(newRequest(http.MethodDelete, "/", ""), uuid.New()),
		asAdmin(newRequest(http.MethodDelete, "/", ""), uuid.New()),
	} {
		resp := httptest.NewRecorder()
		DeleteReview(svc, testLogger())(resp, addRouteParam(req, "reviewId", reviewID.String()))
		require.Equal(t, http.StatusOK, resp.Code)

		var agg reviews.AggregateDTO
		decodeData(t, resp, &agg)
		assert.Zero(t, agg.ReviewCount)
		assert.Nil(t, agg.AverageRating)
	}
	assert.Equal(t, []bool{false, true}, gotAdmin)
}

func TestEditReviewPartialPayload(t *testing.T) {
	svc := &stubReviewsService{
		editFn: func(ctx context.Context, reviewID, actor uuid.UUID, input reviews.EditReviewInput) (*reviews.ReviewDTO, error) {
			require.NotNil(t, input.Rating)
			assert.Equal(t, 2, *input.Rating)
			assert.Nil(t, input.Title)
			assert.Nil(t, input.Anonymous)
			return &reviews.ReviewDTO{ID: reviewID, Rating: 2}, nil
		},
	}
	req := addRouteParam(asUser(newRequest(http.MethodPatch, "/", `{"rating":2}`), uuid.New()), "reviewId", uuid.NewString())
	resp := httptest.NewRecorder()
	EditReview(svc, testLogger())(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestListItemReviewsIsPublic(t *testing.T) {
	itemID := uuid.New()
	svc := &stubReviewsService{
		listFn: func(ctx context.Context, id uuid.UUID, params pagination.Params) (*reviews.ReviewListResult, error) {
			assert.Equal(t, itemID, id)
			page := pagination.NewPage([]reviews.ReviewDTO{{Rating: 5}}, nil)
			return &page, nil
		},
	}
	req := addRouteParam(newRequest(http.MethodGet, "/", ""), "itemId", itemID.String())
	resp := httptest.NewRecorder()
	ListItemReviews(svc, testLogger())(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}
