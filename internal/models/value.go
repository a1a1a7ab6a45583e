package models

// Value is a seeded reference row.
type Value struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"size:255" json:"name"`
}
