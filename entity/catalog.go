package entity

import "time"

// EventStatus mirrors the catalog service's event lifecycle. Only ON_SALE
// is sellable; everything else fails CreateOrder with NotSellable.
type EventStatus string

const (
	EventStatusOnSale    EventStatus = "ON_SALE"
	EventStatusSoldOut   EventStatus = "SOLD_OUT"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// CatalogEvent is the event record returned by Catalog.GetEvent.
type CatalogEvent struct {
	EventID   int64       `json:"event_id"`
	Title     string      `json:"title"`
	Status    EventStatus `json:"status"`
	EventDate time.Time   `json:"event_date"`
	VenueID   string      `json:"venue_id"`
	VenueName string      `json:"venue_name"`
	City      string      `json:"city"`
	BasePrice Money       `json:"base_price"`
}

// Seat is a seating-service record for a single seat at an event.
type Seat struct {
	SeatID     string `json:"seat_id"`
	Section    string `json:"section"`
	Row        string `json:"row"`
	SeatNumber string `json:"seat_number"`
	Price      Money  `json:"price"`
	EventID    int64  `json:"event_id"`
}
