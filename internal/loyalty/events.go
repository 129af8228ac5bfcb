package loyalty

import "github.com/google/uuid"

// AdjustmentEventPayload is the outbox payload for a manual balance change.
type AdjustmentEventPayload struct {
	CustomerID uuid.UUID `json:"customerId"`
	Delta      int       `json:"delta"`
	Balance    int       `json:"balance"`
	Note       string    `json:"note,omitempty"`
}
