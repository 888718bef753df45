package models

import (
	"gorm.io/gorm"
)

// MigrationFunc creates or updates the conversation schema
func MigrationFunc(conn *gorm.DB) error {
	// use conn.Debug().AutoMigrate(...) to enable debugging
	return conn.AutoMigrate(&Conversation{}, &Message{})
}
