package model

import "time"

// Category classifies an event.  Only the four values below are valid.
type Category string

const (
	CategorySocial       Category = "social"
	CategoryProfessional Category = "professional"
	CategoryCultural     Category = "cultural"
	CategorySports       Category = "sports"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategorySocial, CategoryProfessional, CategoryCultural, CategorySports}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Event represents a bookable event as stored in the `events` table.
//
// Fields:
//
//	ID          – primary key identifier.
//	Name        – event title.
//	Description – free text description.
//	Category    – one of social, professional, cultural, sports.
//	Date        – when the event takes place (UTC).
//	Venue       – where the event takes place.
//	Price       – ticket price, fixed point with two decimals.
//	Image       – image reference (URL or storage key), may be empty.
//	CreatedBy   – admin who created the event; nil when that user is gone.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Price       Price     `json:"price"`
	Image       string    `json:"image"`
	CreatedBy   *uint64   `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
