// Package transfers tracks rumoured and confirmed player moves posted by
// the staff. Writes are permission-gated and audited.
package transfers

import (
	"time"

	"github.com/google/uuid"
)

// Transfer is one entry on the transfer board.
type Transfer struct {
	ID         uuid.UUID
	PlayerName string
	Age        int
	Position   string
	FromClub   string
	ToClub     string
	Fee        string
	CreatedBy  *uuid.UUID
	CreatedAt  time.Time
}
