package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/synergyayush/lookindharamshala/internal/adapters/events"
	"github.com/synergyayush/lookindharamshala/internal/application/validation"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/domain/repositories"
	"github.com/synergyayush/lookindharamshala/internal/livecollection"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

func catalogFixture() []*entities.Service {
	return []*entities.Service{
		{ID: "s-1", Name: "Cafe X", Category: "Food", Description: "Coffee and cakes", Location: "McLeod Ganj",
			Contact: entities.Contact{Phone: "+91 98827 70709", Email: "hi@cafex.in"}},
		{ID: "s-2", Name: "Triund Treks", Category: "Adventure", Description: "Guided hikes", Location: "Dharamkot"},
		{ID: "s-3", Name: "Norling Stay", Category: "Stays", Description: "Rooms near the monastery", Location: "Dharamshala"},
	}
}

func openServiceView(t *testing.T, repo *MockServiceRepository) *ServiceView {
	t.Helper()
	view := livecollection.New[*entities.Service, entities.ServicePatch]("services", entities.TableServices, &serviceStore{repo: repo}, nil)
	require.NoError(t, view.Open(context.Background()))
	t.Cleanup(func() { _ = view.Close() })
	return view
}

func TestFilterServices(t *testing.T) {
	all := catalogFixture()

	assert.Len(t, FilterServices(all, "", ""), 3)
	assert.Len(t, FilterServices(all, entities.CategoryAll, ""), 3)
	assert.Equal(t, "s-2", FilterServices(all, "Adventure", "")[0].ID)
	assert.Equal(t, "s-3", FilterServices(all, "", "MONASTERY")[0].ID)
	assert.Equal(t, "s-2", FilterServices(all, "", "dharamkot")[0].ID)
	assert.Empty(t, FilterServices(all, "Food", "hikes"))
}

func TestCatalogService_ListUsesSearchForQueries(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return(catalogFixture(), nil)
	search := &MockSearchRepository{}
	search.On("Search", mock.Anything, repositories.ServiceSearchParams{Query: "trek", Category: "", Limit: 50}).
		Return([]*entities.Service{catalogFixture()[1]}, nil)

	svc := NewCatalogService(openServiceView(t, repo), repo, search, validation.New(), nil, "Dharamshala")

	got, err := svc.List(context.Background(), "All", "trek")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s-2", got[0].ID)

	got, err = svc.List(context.Background(), "Stays", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s-3", got[0].ID)
	search.AssertNumberOfCalls(t, "Search", 1)
}

func TestCatalogService_SearchHitsComeFromLiveCatalog(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return(catalogFixture(), nil)
	search := &MockSearchRepository{}
	search.On("Search", mock.Anything, mock.Anything).Return([]*entities.Service{
		{ID: "s-9", Name: "Cafe Gone"},
		{ID: "s-1", Name: "Cafe X"},
	}, nil)

	svc := NewCatalogService(openServiceView(t, repo), repo, search, validation.New(), nil, "Dharamshala")

	got, err := svc.List(context.Background(), "", "cafe")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s-1", got[0].ID)
	assert.Equal(t, "hi@cafex.in", got[0].Contact.Email)
	assert.Equal(t, "McLeod Ganj", got[0].Location)
}

func TestCatalogService_SearchWithoutViewReadsStore(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{Category: "Stays"}).
		Return([]*entities.Service{catalogFixture()[2]}, nil)
	search := &MockSearchRepository{}
	search.On("Search", mock.Anything, mock.Anything).Return([]*entities.Service{
		{ID: "s-3"}, {ID: "s-1"},
	}, nil)

	svc := NewCatalogService(nil, repo, search, validation.New(), nil, "Dharamshala")

	got, err := svc.List(context.Background(), "Stays", "monastery")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Norling Stay", got[0].Name)
}

func TestCatalogService_ListFallsBackWhenSearchFails(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return(catalogFixture(), nil)
	search := &MockSearchRepository{}
	search.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("typesense down"))

	svc := NewCatalogService(openServiceView(t, repo), repo, search, validation.New(), nil, "Dharamshala")

	got, err := svc.List(context.Background(), "", "cafe")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s-1", got[0].ID)
}

func TestCatalogService_GetBuildsLinks(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return(catalogFixture(), nil)
	svc := NewCatalogService(openServiceView(t, repo), repo, nil, validation.New(), nil, "Dharamshala")

	detail, err := svc.Get(context.Background(), "s-1")

	require.NoError(t, err)
	assert.Equal(t, "Cafe X", detail.Name)
	assert.Equal(t,
		"https://www.google.com/maps/search/?api=1&query=Cafe+X%2C+McLeod+Ganj%2C+Dharamshala%2C+Himachal+Pradesh",
		detail.Links.Directions)
	assert.Equal(t, "https://wa.me/919882770709", detail.Links.WhatsApp)
	assert.Equal(t, "mailto:hi@cafex.in", detail.Links.Email)
}

func TestCatalogService_GetFallsBackToStore(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return([]*entities.Service{}, nil)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError("service with id missing not found"))
	svc := NewCatalogService(openServiceView(t, repo), repo, nil, validation.New(), nil, "Dharamshala")

	_, err := svc.Get(context.Background(), "missing")

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCatalogService_CreateValidatesAndIndexes(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return([]*entities.Service{}, nil)
	created := &entities.Service{ID: "s-9", Name: "Yoga Shala", Category: "Wellness", Location: "Dharamshala"}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(s *entities.Service) bool {
		return s.Name == "Yoga Shala" && s.Location == "Dharamshala"
	})).Return(created, nil)
	search := &MockSearchRepository{}
	search.On("Index", mock.Anything, created).Return(nil)

	view := openServiceView(t, repo)
	svc := NewCatalogService(view, repo, search, validation.New(), nil, "Dharamshala")

	_, err := svc.Create(context.Background(), ServiceInput{Name: "Yoga Shala", Category: "Wellness", About: "Open 24/7"})
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	got, err := svc.Create(context.Background(), ServiceInput{Name: "Yoga Shala", Category: "Wellness", Rating: 4.8})
	require.NoError(t, err)
	assert.Equal(t, "s-9", got.ID)
	_, ok := view.Get("s-9")
	assert.True(t, ok)
	search.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestCatalogService_UpdateRejectsBadAbout(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return(catalogFixture(), nil)
	svc := NewCatalogService(openServiceView(t, repo), repo, nil, validation.New(), nil, "Dharamshala")

	about := "Best cafe #1"
	_, err := svc.Update(context.Background(), "s-1", entities.ServicePatch{About: &about})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.Update(context.Background(), "s-1", entities.ServicePatch{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_DeleteRemovesFromIndex(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return(catalogFixture(), nil)
	repo.On("Delete", mock.Anything, "s-2").Return(nil)
	search := &MockSearchRepository{}
	search.On("Delete", mock.Anything, "s-2").Return(errors.New("index unavailable"))

	view := openServiceView(t, repo)
	svc := NewCatalogService(view, repo, search, validation.New(), nil, "Dharamshala")

	require.NoError(t, svc.Delete(context.Background(), "s-2"))
	_, ok := view.Get("s-2")
	assert.False(t, ok)
	search.AssertExpectations(t)
}

func TestCatalogService_Reindex(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return(catalogFixture(), nil)
	search := &MockSearchRepository{}
	search.On("Index", mock.Anything, mock.MatchedBy(func(s *entities.Service) bool { return s.ID == "s-2" })).
		Return(errors.New("bad document"))
	search.On("Index", mock.Anything, mock.Anything).Return(nil)

	svc := NewCatalogService(nil, repo, search, validation.New(), nil, "Dharamshala")

	n, err := svc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = NewCatalogService(nil, repo, nil, validation.New(), nil, "Dharamshala").Reindex(context.Background())
	assert.Error(t, err)
}

func TestCatalogService_IndexSyncFollowsChanges(t *testing.T) {
	repo := &MockServiceRepository{}
	repo.On("GetByID", mock.Anything, "s-2").Return(catalogFixture()[1], nil)
	repo.On("GetByID", mock.Anything, "s-gone").Return(nil, apperrors.NewNotFoundError("service with id s-gone not found"))

	touched := make(chan string, 4)
	search := &MockSearchRepository{}
	search.On("Index", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		touched <- "index:" + args.Get(1).(*entities.Service).ID
	})
	search.On("Delete", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		touched <- "delete:" + args.String(1)
	})

	bus := events.NewLocalEventBus()
	t.Cleanup(func() { _ = bus.Close() })
	ctx, cancel := context.WithCancel(context.Background())

	svc := NewCatalogService(nil, repo, search, validation.New(), nil, "Dharamshala")
	done, err := svc.StartIndexSync(ctx, bus)
	require.NoError(t, err)

	channel := providers.TableChannel(entities.TableServices)
	for _, ev := range []*entities.ChangeEvent{
		entities.NewChangeEvent(entities.TableServices, entities.ChangeTypeUpdate, "s-2"),
		entities.NewChangeEvent(entities.TableServices, entities.ChangeTypeDelete, "s-3"),
		entities.NewChangeEvent(entities.TableServices, entities.ChangeTypeInsert, "s-gone"),
	} {
		require.NoError(t, bus.Publish(ctx, channel, ev))
	}

	var got []string
	for len(got) < 3 {
		select {
		case op := <-touched:
			got = append(got, op)
		case <-time.After(2 * time.Second):
			t.Fatalf("index sync stalled after %v", got)
		}
	}
	assert.Equal(t, []string{"index:s-2", "delete:s-3", "delete:s-gone"}, got)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("index sync did not stop")
	}
}

func TestCatalogService_IndexSyncWithoutSearchIsNoop(t *testing.T) {
	svc := NewCatalogService(nil, &MockServiceRepository{}, nil, validation.New(), nil, "Dharamshala")

	done, err := svc.StartIndexSync(context.Background(), events.NewLocalEventBus())
	require.NoError(t, err)
	_, open := <-done
	assert.False(t, open)
}

func TestViews_ServicesStayNewestFirst(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &MockServiceRepository{}
	repo.On("List", mock.Anything, repositories.ServiceFilter{}).Return([]*entities.Service{
		{ID: "s-2", Name: "Triund Treks", Category: "Adventure", CreatedAt: older.Add(time.Hour)},
		{ID: "s-1", Name: "Cafe X", Category: "Food", CreatedAt: older},
	}, nil)
	repo.On("Update", mock.Anything, "s-1", mock.Anything).
		Return(&entities.Service{ID: "s-1", Name: "Cafe X Roastery", Category: "Food", CreatedAt: older}, nil)
	repo.On("Create", mock.Anything, mock.Anything).
		Return(&entities.Service{ID: "s-3", Name: "Norling Stay", Category: "Stays", CreatedAt: older.Add(2 * time.Hour)}, nil)

	views := NewViews(repo, &MockListingRepository{}, &MockReviewRepository{}, nil, entities.PromotionDefaults{}, nil)
	require.NoError(t, views.Services.Open(context.Background()))
	t.Cleanup(func() { _ = views.Services.Close() })

	name := "Cafe X Roastery"
	_, err := views.Services.Update(context.Background(), "s-1", entities.ServicePatch{Name: &name})
	require.NoError(t, err)
	_, err = views.Services.Create(context.Background(), &entities.Service{Name: "Norling Stay", Category: "Stays"})
	require.NoError(t, err)

	var ids []string
	for _, svc := range views.Services.List() {
		ids = append(ids, svc.ID)
	}
	assert.Equal(t, []string{"s-3", "s-2", "s-1"}, ids)
}
