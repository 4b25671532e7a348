package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/synergyayush/lookindharamshala/internal/application/validation"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

func reviewFixture() []*entities.Review {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []*entities.Review{
		{ID: "r-2", Name: "Pema", Review: "Lovely stay", Rating: 5, Approved: true, CreatedAt: now},
		{ID: "r-1", Name: "Ravi", Review: "Needs work", Rating: 2, CreatedAt: now.Add(-time.Hour)},
	}
}

func openReviewViews(t *testing.T, repo *MockReviewRepository) *ReviewView {
	t.Helper()
	views := NewViews(&MockServiceRepository{}, &MockListingRepository{}, repo, nil, testModerationConfig.Defaults, nil)
	require.NoError(t, views.Reviews.Open(context.Background()))
	t.Cleanup(func() { _ = views.Reviews.Close() })
	return views.Reviews
}

func TestReviewService_TestimonialsAreApprovedOnly(t *testing.T) {
	repo := &MockReviewRepository{}
	repo.On("List", mock.Anything, false).Return(reviewFixture(), nil)

	svc := NewReviewService(openReviewViews(t, repo), repo, nil, nil)

	public, err := svc.Testimonials(context.Background())
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "r-2", public[0].ID)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReviewService_TestimonialsWithoutViewQueryStore(t *testing.T) {
	repo := &MockReviewRepository{}
	repo.On("List", mock.Anything, true).Return(reviewFixture()[:1], nil)

	svc := NewReviewService(nil, repo, nil, nil)

	public, err := svc.Testimonials(context.Background())
	require.NoError(t, err)
	assert.Len(t, public, 1)
	repo.AssertExpectations(t)
}

func TestReviewService_ApproveAndDelete(t *testing.T) {
	repo := &MockReviewRepository{}
	repo.On("List", mock.Anything, false).Return(reviewFixture(), nil)
	approved := *reviewFixture()[1]
	approved.Approved = true
	repo.On("Update", mock.Anything, "r-1", mock.MatchedBy(func(p entities.ReviewPatch) bool {
		return p.Approved != nil && *p.Approved
	})).Return(&approved, nil)
	repo.On("Delete", mock.Anything, "r-2").Return(nil)
	repo.On("Delete", mock.Anything, "missing").Return(apperrors.NewNotFoundError("review with id missing not found"))

	view := openReviewViews(t, repo)
	svc := NewReviewService(view, repo, nil, nil)

	got, err := svc.Approve(context.Background(), "r-1")
	require.NoError(t, err)
	assert.True(t, got.Approved)

	public, _ := svc.Testimonials(context.Background())
	assert.Len(t, public, 2)

	require.NoError(t, svc.Delete(context.Background(), "r-2"))
	_, ok := view.Get("r-2")
	assert.False(t, ok)

	err = svc.Delete(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.Len(t, view.List(), 1)
}

func TestContactService_Links(t *testing.T) {
	svc := NewContactService(validation.New(), "owner@example.com", "+91 98827 70709")

	links, err := svc.Links(ContactRequest{
		Name:    " Asha ",
		Email:   "asha@cafex.in",
		Phone:   "9882770709",
		Subject: "Listing help",
		Message: "How do I add photos?",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(links.Mailto, "mailto:owner@example.com?subject=Contact%20Form%3A%20Listing%20help&body="))
	assert.NotContains(t, links.Mailto, "+")

	u, err := url.Parse(links.WhatsApp)
	require.NoError(t, err)
	assert.Equal(t, "/919882770709", u.Path)
	assert.True(t, strings.HasPrefix(u.Query().Get("text"), "Hello, my name is Asha.\nEmail: asha@cafex.in"))

	_, err = svc.Links(ContactRequest{Name: "Asha"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

var _ repositories.ReviewRepository = (*MockReviewRepository)(nil)
