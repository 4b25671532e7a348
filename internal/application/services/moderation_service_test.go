package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/synergyayush/lookindharamshala/internal/adapters/events"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/livecollection"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

var testModerationConfig = ModerationConfig{
	SiteName:  "Look in Dharamshala",
	SiteURL:   "https://lookindharamshala.synergyayush.com/",
	Region:    "Dharamshala",
	Signature: "Ayush Sharma",
	Defaults:  entities.PromotionDefaults{Location: "Dharamshala", Rating: 4.5},
}

func pendingCafeX() *entities.Listing {
	return &entities.Listing{
		ID:           "l-1",
		BusinessName: "Cafe X",
		OwnerName:    "Asha",
		Phone:        "+919882770709",
		Email:        "asha@cafex.in",
		Category:     "Food",
		About:        "Cozy cafe",
		Description:  "Coffee with a valley view",
		Images:       []string{"https://cdn.test/businesses/uploads/1_0.png"},
		Status:       entities.ListingStatusPending,
	}
}

func approvedPair() (*entities.Listing, *entities.Service) {
	l := pendingCafeX()
	l.Status = entities.ListingStatusApproved
	s := entities.ServiceFromListing(l, testModerationConfig.Defaults)
	s.ID = "s-1"
	return l, s
}

type viewFixture struct {
	listings *MockListingRepository
	services *MockServiceRepository
	pending  *ListingView
	catalog  *ServiceView
}

func openModerationViews(t *testing.T, bus providers.EventBus) *viewFixture {
	t.Helper()
	f := &viewFixture{listings: &MockListingRepository{}, services: &MockServiceRepository{}}
	f.listings.On("ListByStatus", mock.Anything, entities.ListingStatusPending).
		Return([]*entities.Listing{pendingCafeX()}, nil)
	f.services.On("List", mock.Anything, repositories.ServiceFilter{}).Return([]*entities.Service{}, nil)

	views := NewViews(f.services, f.listings, &MockReviewRepository{}, bus, testModerationConfig.Defaults, nil)
	f.pending, f.catalog = views.Pending, views.Services
	require.NoError(t, f.pending.Open(context.Background()))
	require.NoError(t, f.catalog.Open(context.Background()))
	t.Cleanup(func() {
		_ = f.pending.Close()
		_ = f.catalog.Close()
	})
	return f
}

func TestModerationService_ApproveCafeX(t *testing.T) {
	f := openModerationViews(t, nil)
	listing, service := approvedPair()
	f.listings.On("Approve", mock.Anything, "l-1", testModerationConfig.Defaults).Return(listing, service, nil)

	messenger := &MockMessenger{}
	messenger.On("SendText", mock.Anything, "+919882770709", mock.Anything).Return(nil)

	svc := NewModerationService(f.listings, testModerationConfig,
		WithLiveViews(f.pending, f.catalog),
		WithMessenger(messenger),
	)

	result, err := svc.Approve(context.Background(), "l-1")
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, "Cafe X", result.Service.Name)
	assert.Equal(t, "Food", result.Service.Category)
	assert.Equal(t, 4.5, result.Service.Rating)
	assert.Equal(t, "Dharamshala", result.Service.Location)
	assert.Equal(t, "Asha", result.Service.Owner)
	assert.Equal(t, entities.Contact{Phone: "+919882770709", Email: "asha@cafex.in"}, result.Service.Contact)

	assert.True(t, strings.HasPrefix(result.WhatsAppLink, "https://wa.me/919882770709?text="))
	u, err := url.Parse(result.WhatsAppLink)
	require.NoError(t, err)
	text := u.Query().Get("text")
	assert.Contains(t, text, "Congratulations Asha!")
	assert.Contains(t, text, "*Cafe X*")
	assert.Contains(t, text, "Category: Food")
	assert.Equal(t, result.Message, text)

	assert.Empty(t, f.pending.List(), "approved listing leaves the pending view")
	_, ok := f.catalog.Get("s-1")
	assert.True(t, ok, "promoted service joins the catalog view")
	messenger.AssertExpectations(t)
}

func TestModerationService_ApproveSucceedsWhenMessengerFails(t *testing.T) {
	f := openModerationViews(t, nil)
	listing, service := approvedPair()
	f.listings.On("Approve", mock.Anything, "l-1", mock.Anything).Return(listing, service, nil)

	messenger := &MockMessenger{}
	messenger.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("token expired"))

	svc := NewModerationService(f.listings, testModerationConfig, WithLiveViews(f.pending, f.catalog), WithMessenger(messenger))

	result, err := svc.Approve(context.Background(), "l-1")
	svc.Wait()

	require.NoError(t, err)
	assert.NotEmpty(t, result.WhatsAppLink)
	messenger.AssertNumberOfCalls(t, "SendText", 1)
}

func TestModerationService_ApproveConflictLeavesViews(t *testing.T) {
	f := openModerationViews(t, nil)
	f.listings.On("Approve", mock.Anything, "l-1", mock.Anything).
		Return(nil, nil, apperrors.NewConflictError("a rejected business cannot be approved"))

	svc := NewModerationService(f.listings, testModerationConfig, WithLiveViews(f.pending, f.catalog))

	_, err := svc.Approve(context.Background(), "l-1")

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.Len(t, f.pending.List(), 1)
	assert.Empty(t, f.catalog.List())
}

func TestModerationService_RejectThroughView(t *testing.T) {
	f := openModerationViews(t, nil)
	rejected := pendingCafeX()
	rejected.Status = entities.ListingStatusRejected
	f.listings.On("Reject", mock.Anything, "l-1").Return(rejected, nil)

	svc := NewModerationService(f.listings, testModerationConfig, WithLiveViews(f.pending, f.catalog))

	got, err := svc.Reject(context.Background(), "l-1")

	require.NoError(t, err)
	assert.Equal(t, entities.ListingStatusRejected, got.Status)
	assert.Empty(t, f.pending.List())
	assert.Empty(t, f.catalog.List())
	f.listings.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything)
}

func TestModerationService_RejectWithoutViewsPublishes(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, providers.TableChannel(entities.TableBusinesses))
	require.NoError(t, err)

	listings := &MockListingRepository{}
	rejected := pendingCafeX()
	rejected.Status = entities.ListingStatusRejected
	listings.On("Reject", mock.Anything, "l-1").Return(rejected, nil)

	svc := NewModerationService(listings, testModerationConfig, WithEventBus(bus))
	_, err = svc.Reject(context.Background(), "l-1")
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, "l-1", ev.RecordID)
	case <-time.After(time.Second):
		t.Fatal("no change event for the rejected listing")
	}
}

type recordingIndexer struct {
	ids []string
}

func (r *recordingIndexer) Indexed(_ context.Context, svc *entities.Service) {
	r.ids = append(r.ids, svc.ID)
}

func TestModerationService_Reconcile(t *testing.T) {
	listings := &MockListingRepository{}
	orphanA, serviceA := approvedPair()
	orphanB := &entities.Listing{ID: "l-2", BusinessName: "Gone Cafe", Status: entities.ListingStatusApproved}

	listings.On("ListApprovedWithoutService", mock.Anything).Return([]*entities.Listing{orphanA, orphanB}, nil)
	listings.On("Approve", mock.Anything, "l-1", testModerationConfig.Defaults).Return(orphanA, serviceA, nil)
	listings.On("Approve", mock.Anything, "l-2", testModerationConfig.Defaults).
		Return(nil, nil, apperrors.NewExternalError("failed to promote business", errors.New("timeout")))

	indexer := &recordingIndexer{}
	messenger := &MockMessenger{}
	svc := NewModerationService(listings, testModerationConfig, WithIndexer(indexer), WithMessenger(messenger))

	report, err := svc.Reconcile(context.Background())
	svc.Wait()

	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, []string{"l-1"}, report.Promoted)
	assert.Contains(t, report.Failed, "l-2")
	assert.Equal(t, []string{"s-1"}, indexer.ids)
	messenger.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestModerationService_PeriodicReconcileStops(t *testing.T) {
	var sweeps atomic.Int32
	listings := &MockListingRepository{}
	listings.On("ListApprovedWithoutService", mock.Anything).
		Run(func(mock.Arguments) { sweeps.Add(1) }).
		Return([]*entities.Listing{}, nil)
	svc := NewModerationService(listings, testModerationConfig)

	ctx, cancel := context.WithCancel(context.Background())
	done := svc.StartPeriodicReconcile(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return sweeps.Load() > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconcile loop did not stop")
	}
}

func TestPendingListingStore_RoutesDecisions(t *testing.T) {
	listings := &MockListingRepository{}
	listing, service := approvedPair()
	listings.On("Approve", mock.Anything, "l-1", testModerationConfig.Defaults).Return(listing, service, nil)

	store := &pendingListingStore{repo: listings, defaults: testModerationConfig.Defaults}

	got, err := store.Update(context.Background(), "l-1", entities.ListingPatch{Status: entities.ListingStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, entities.ListingStatusApproved, got.Status)

	_, err = store.Update(context.Background(), "l-1", entities.ListingPatch{Status: entities.ListingStatusPending})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Error(t, store.Delete(context.Background(), "l-1"))
}

var _ livecollection.Store[*entities.Review, entities.ReviewPatch] = (*reviewStore)(nil)
