package models

import "time"

// User roles
const (
	RoleVoter     = "voter"
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)

type User struct {
	ID                 int        `json:"id" example:"1"`                      // User ID
	Email              string     `json:"email" example:"user@example.com"`    // User email
	Username           string     `json:"username" example:"ada"`              // Unique username
	FullName           string     `json:"fullName" example:"Ada Obi"`          // Display name
	Role               string     `json:"role" example:"voter"`                // voter | candidate | admin
	Bio                string     `json:"bio,omitempty"`                       // Short bio
	ProfilePicture     string     `json:"profilePicture,omitempty"`            // Avatar URL
	TotalVotesGiven    int64      `json:"totalVotesGiven"`                     // Cached vote weight given (derived)
	TotalVotesReceived int64      `json:"totalVotesReceived"`                  // Cached vote weight received (derived)
	Followers          []int      `json:"followers,omitempty"`
	Following          []int      `json:"following,omitempty"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Wallet holds a user's spendable balance. Balance is in minor currency
// units and is only mutated through the wallet service debit/credit paths.
type Wallet struct {
	UserID    int       `json:"user_id" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	Version   int       `json:"version" db:"version"` // for optimistic locking
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
