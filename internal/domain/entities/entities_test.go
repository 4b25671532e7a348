package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceFromListing(t *testing.T) {
	listing := &Listing{
		ID:           "l-1",
		BusinessName: "Cafe X",
		OwnerName:    "Tenzin",
		Phone:        "+919876543210",
		Email:        "cafe@x.in",
		Category:     "Food",
		About:        "Cozy cafe",
		Description:  "Coffee and momos",
		Images:       []string{"https://cdn/a.jpg"},
		Status:       ListingStatusApproved,
	}

	svc := ServiceFromListing(listing, PromotionDefaults{Location: "Dharamshala", Rating: 4.5})

	assert.Equal(t, "Cafe X", svc.Name)
	assert.Equal(t, "Food", svc.Category)
	assert.Equal(t, "Tenzin", svc.Owner)
	assert.Equal(t, Contact{Phone: "+919876543210", Email: "cafe@x.in"}, svc.Contact)
	assert.Equal(t, "Dharamshala", svc.Location)
	assert.Equal(t, 4.5, svc.Rating)
	require.NotNil(t, svc.SourceListingID)
	assert.Equal(t, "l-1", *svc.SourceListingID)

	svc.Images[0] = "changed"
	assert.Equal(t, "https://cdn/a.jpg", listing.Images[0])
}

func TestServicePatch_Apply(t *testing.T) {
	orig := &Service{ID: "s1", Name: "Old", Rating: 3, Images: []string{"a"}, Contact: Contact{Phone: "1"}}
	name := "New"
	phone := "2"

	patch := ServicePatch{Name: &name, Phone: &phone}
	out := patch.Apply(orig)

	assert.Equal(t, "New", out.Name)
	assert.Equal(t, "2", out.Contact.Phone)
	assert.Equal(t, 3.0, out.Rating)
	assert.Equal(t, "Old", orig.Name)
	assert.False(t, patch.IsEmpty())
	assert.True(t, ServicePatch{}.IsEmpty())
}

func TestCategories(t *testing.T) {
	assert.True(t, IsValidCategory("Stays"))
	assert.True(t, IsValidCategory("Hospitals&Clinics"))
	assert.False(t, IsValidCategory(CategoryAll))
	assert.False(t, IsValidCategory("stays"))

	cats := Categories()
	cats[0] = "mutated"
	assert.Equal(t, "Stays", Categories()[0])
}

func TestNewestFirst(t *testing.T) {
	now := time.Now()
	older := &Review{CreatedAt: now.Add(-time.Hour)}
	newer := &Review{CreatedAt: now}

	assert.True(t, NewestFirst(newer, older))
	assert.False(t, NewestFirst(older, newer))
}

func TestNewChangeEvent(t *testing.T) {
	ev := NewChangeEvent(TableServices, ChangeTypeInsert, "s1")

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "services", ev.Table)
	assert.Equal(t, ChangeTypeInsert, ev.Type)
	assert.WithinDuration(t, time.Now(), ev.Timestamp, time.Minute)
}
