package models

import (
	"time"
)

type Mentor struct {
	ID          string    `json:"id" db:"id" bson:"id"`
	Name        string    `json:"name" db:"name" bson:"name"`
	Course      string    `json:"course" db:"course" bson:"course"`
	Specialized string    `json:"specialized" db:"specialized" bson:"specialized"`
	Students    Roster    `json:"students" db:"students" bson:"students"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}
