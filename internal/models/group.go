package models

import "time"

type Group struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// GroupSummary is a group with its derived account count.
type GroupSummary struct {
	Group
	AccountCount int
}
