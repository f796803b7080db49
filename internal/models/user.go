package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a user who connected their Bluesky account.
type Account struct {
	ID           uuid.UUID `json:"id"`
	DID          string    `json:"did"`
	Handle       string    `json:"handle"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	IsModerator  bool      `json:"is_moderator"`
	CreatedAt    time.Time `json:"created_at"`
}

type ConnectAccountParams struct {
	DID          string
	Handle       string
	AccessToken  string
	RefreshToken string
}

// PropagationReport summarizes one fan-out of a block to other accounts.
type PropagationReport struct {
	TargetID  string   `json:"target_did"`
	Attempted int      `json:"attempted"`
	Applied   int      `json:"applied"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	FailedFor []string `json:"failed_for,omitempty"`
}
