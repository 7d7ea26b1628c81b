package models

import (
	"time"

	"github.com/ethoparts/marketplace-backend/pkg/types"
)

// PlatformSetting is a keyed JSON document of admin configuration.
type PlatformSetting struct {
	Key       string             `gorm:"column:key;primaryKey"`
	Value     types.JSONDocument `gorm:"column:value;type:jsonb;not null"`
	UpdatedAt time.Time          `gorm:"column:updated_at"`
}
