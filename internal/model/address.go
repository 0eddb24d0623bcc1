package model

import "time"

// Address is a configured property: the postcode the user entered plus the
// UPRN and label it resolved to. This is the only configuration state the
// service persists; collection data itself is never stored.
type Address struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Postcode  string    `gorm:"size:16;not null" json:"postcode"`
	UPRN      string    `gorm:"column:uprn;uniqueIndex;size:32;not null" json:"uprn"`
	Label     string    `gorm:"size:256;not null" json:"label"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	// Associations
	Subscriptions []*PushSubscription `gorm:"many2many:subscription_address_mapping;" json:"-"`
}
