package models

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#3B82F6"

type Tag struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Color  string `db:"color" json:"color"`
	UserID int64  `db:"user_id" json:"user_id"`
}
