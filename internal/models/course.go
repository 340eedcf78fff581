package models

import "time"

// Course belongs to exactly one user. EstimatedTime and
// MaterialsNeeded are optional free text and serialize as null when
// absent.
type Course struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	EstimatedTime   *string   `json:"estimatedTime"`
	MaterialsNeeded *string   `json:"materialsNeeded"`
	UserID          int       `json:"userId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// User is populated on reads with the owner projection.
	User *Owner `json:"user,omitempty"`
}
