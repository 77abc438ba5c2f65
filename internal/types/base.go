package types

import "time"

// BaseModel carries the audit columns shared by all durable entities.
type BaseModel struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
