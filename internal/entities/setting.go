package entities

import "time"

// Keys of the settings a user may override at runtime.
const (
	SettingKeyDriveFolderID = "drive_folder_id"
	SettingKeyDeviceName    = "device_name"
)

// Setting is a runtime override of a configured value, keyed by name.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }
