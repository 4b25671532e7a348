package entities

// CategoryAll is the catalog filter meaning "no filter". It is never stored.
const CategoryAll = "All"

var categories = []string{
	"Stays",
	"Food",
	"Adventure",
	"Guides",
	"Shopping",
	"Wellness",
	"Education",
	"Gyms",
	"Hospitals&Clinics",
	"Vehicle Rentals",
	"Photography",
	"Spiritual",
	"Entertainment",
	"Pet Services",
	"Transportation",
	"Stationery & Book Stores",
	"PG & Hostels",
	"Home Services (Plumber, Electrician, Carpenter)",
	"Beauty & Salon",
	"Banks & ATMs",
	"Events & Party Services",
	"Laundry & Dry Cleaning",
	"Courier & Delivery",
	"Repair Services (Mobile, Laptop, etc.)",
	"Real Estate & Rentals",
	"Legal & Consultancy",
	"Coworking Spaces",
	"Mobile Accessories & SIM Services",
	"Room Rentals & Paying Guests",
}

var categorySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		m[c] = struct{}{}
	}
	return m
}()

// Categories returns the storable categories in display order
func Categories() []string {
	return append([]string(nil), categories...)
}

// IsValidCategory reports whether c may be stored on a listing or service
func IsValidCategory(c string) bool {
	_, ok := categorySet[c]
	return ok
}
