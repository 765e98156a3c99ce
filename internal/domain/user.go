package domain

import "time"

// User owns orders. Users are created out of band and not mutated afterwards.
type User struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}
