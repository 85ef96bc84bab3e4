package aliases

import (
	"time"

	"github.com/google/uuid"
)

// GroupDTO is the wire shape for an alias group.
type GroupDTO struct {
	ID        uuid.UUID `json:"id"`
	AliasName string    `json:"alias_name"`
	PartCount int       `json:"part_count"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupList wraps paginated groups plus the next page cursor.
type GroupList struct {
	Groups     []GroupDTO `json:"groups"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// LinkDTO is the wire shape for a part mapped into a group.
type LinkDTO struct {
	LinkID   uuid.UUID `json:"link_id"`
	AliasID  uuid.UUID `json:"alias_id"`
	PartID   uuid.UUID `json:"part_id"`
	PartName string    `json:"part_name"`
	Quantity int       `json:"quantity"`
}
