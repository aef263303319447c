package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

// RentalRequestedPayload is sent to an item owner when a renter asks for dates.
type RentalRequestedPayload struct {
	RentalID   uuid.UUID          `json:"rental_id"`
	ItemID     uuid.UUID          `json:"item_id"`
	ItemTitle  string             `json:"item_title"`
	RenterID   uuid.UUID          `json:"renter_id"`
	RenterName string             `json:"renter_name,omitempty"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`
	TotalPrice string             `json:"total_price"`
	Status     enums.RentalStatus `json:"status"`
}

// RentalStatusChangedPayload is sent to the other participant after a transition.
type RentalStatusChangedPayload struct {
	RentalID       uuid.UUID          `json:"rental_id"`
	ItemID         uuid.UUID          `json:"item_id"`
	ItemTitle      string             `json:"item_title"`
	PreviousStatus enums.RentalStatus `json:"previous_status"`
	Status         enums.RentalStatus `json:"status"`
	ChangedBy      uuid.UUID          `json:"changed_by"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
}

// ItemListingChangedPayload is sent to the owner after a listing toggle.
type ItemListingChangedPayload struct {
	ItemID    uuid.UUID `json:"item_id"`
	ItemTitle string    `json:"item_title"`
	IsListed  bool      `json:"is_listed"`
}

// Rendered is the human readable inbox copy of a message.
type Rendered struct {
	Title   string
	Message string
	Link    string
}

const dateLayout = "2006-01-02"

// Render builds the inbox title, body and deep link for msg. Unknown or
// undecodable payloads fall back to a generic text.
func Render(msg Message) Rendered {
	switch msg.Event {
	case enums.NotificationEventRentalRequested:
		var p RentalRequestedPayload
		if err := json.Unmarshal(msg.Payload, &p); err == nil {
			who := p.RenterName
			if who == "" {
				who = "A renter"
			}
			return Rendered{
				Title: "New rental request",
				Message: fmt.Sprintf("%s wants to rent %q from %s to %s.",
					who, p.ItemTitle, p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout)),
				Link: rentalLink(p.RentalID),
			}
		}
	case enums.NotificationEventRentalStatusChanged:
		var p RentalStatusChangedPayload
		if err := json.Unmarshal(msg.Payload, &p); err == nil {
			return Rendered{
				Title:   "Rental " + string(p.Status),
				Message: fmt.Sprintf("Your rental of %q is now %s.", p.ItemTitle, p.Status),
				Link:    rentalLink(p.RentalID),
			}
		}
	case enums.NotificationEventItemListingChanged:
		var p ItemListingChangedPayload
		if err := json.Unmarshal(msg.Payload, &p); err == nil {
			state := "unlisted"
			if p.IsListed {
				state = "listed"
			}
			return Rendered{
				Title:   "Listing updated",
				Message: fmt.Sprintf("%q is now %s.", p.ItemTitle, state),
				Link:    "/items/" + p.ItemID.String(),
			}
		}
	}
	return Rendered{
		Title:   string(msg.Event),
		Message: "You have a new notification.",
	}
}

func rentalLink(id uuid.UUID) string {
	return "/rentals/" + id.String()
}
