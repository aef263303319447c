package rentals

import (
	"time"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

// Overlaps reports whether two inclusive ranges share any instant. A booking
// ending on the day another starts counts as overlapping.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// Conflict describes an existing booking that blocks a request.
type Conflict struct {
	RentalID  uuid.UUID          `json:"rental_id"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Status    enums.RentalStatus `json:"status"`
}

// FindConflicts returns the rentals that hold the calendar over [start, end].
func FindConflicts(existing []models.Rental, start, end time.Time) []Conflict {
	var conflicts []Conflict
	for _, rental := range existing {
		if !rental.Status.Occupies() {
			continue
		}
		if !Overlaps(rental.StartDate, rental.EndDate, start, end) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			RentalID:  rental.ID,
			StartDate: rental.StartDate,
			EndDate:   rental.EndDate,
			Status:    rental.Status,
		})
	}
	return conflicts
}
