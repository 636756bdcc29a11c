package domain

import "time"

type APIToken struct {
	ID          string
	Value       string
	Description string
	Active      bool
	CreatedAt   time.Time
}
