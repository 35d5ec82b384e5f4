package settingsstore

import (
	"os"
	"strings"

	"github.com/mrlokans/lumina/internal/database/settings"
	"github.com/mrlokans/lumina/internal/entities"
)

const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceDefault     = "default"
)

// Environment holds values from configuration (DRIVE_FOLDER_ID, DEVICE_NAME).
type Environment struct {
	DriveFolderID string
	DeviceName    string
}

// Priority: database > environment > default
type SettingsStore struct {
	repo *settings.Repository
	env  Environment
}

func New(repo *settings.Repository, env Environment) *SettingsStore {
	return &SettingsStore{repo: repo, env: env}
}

// Value is an effective setting and where it came from.
type Value struct {
	Value  string `json:"value"`
	Source string `json:"source"` // "database", "environment", or "default"
}

// Info is the effective sync configuration shown to the user.
type Info struct {
	DriveFolderID Value `json:"drive_folder_id"`
	DeviceName    Value `json:"device_name"`
}

func (s *SettingsStore) resolve(key, envValue, fallback string) Value {
	if value, ok, err := s.repo.Get(key); err == nil && ok && value != "" {
		return Value{Value: value, Source: SourceDatabase}
	}
	if envValue != "" {
		return Value{Value: envValue, Source: SourceEnvironment}
	}
	return Value{Value: fallback, Source: SourceDefault}
}

// GetDriveFolderID returns the folder the library is listed from. Empty means
// every EPUB visible to the account.
func (s *SettingsStore) GetDriveFolderID() string {
	return s.resolve(entities.SettingKeyDriveFolderID, s.env.DriveFolderID, "").Value
}

func (s *SettingsStore) SetDriveFolderID(folderID string) error {
	return s.repo.Set(entities.SettingKeyDriveFolderID, strings.TrimSpace(folderID))
}

func (s *SettingsStore) ClearDriveFolderID() error {
	return s.repo.Delete(entities.SettingKeyDriveFolderID)
}

// GetDeviceName returns the label written as last_device. It defaults to the
// host name.
func (s *SettingsStore) GetDeviceName() string {
	return s.resolve(entities.SettingKeyDeviceName, s.env.DeviceName, defaultDeviceName()).Value
}

func (s *SettingsStore) SetDeviceName(name string) error {
	return s.repo.Set(entities.SettingKeyDeviceName, strings.TrimSpace(name))
}

func (s *SettingsStore) GetInfo() Info {
	return Info{
		DriveFolderID: s.resolve(entities.SettingKeyDriveFolderID, s.env.DriveFolderID, ""),
		DeviceName:    s.resolve(entities.SettingKeyDeviceName, s.env.DeviceName, defaultDeviceName()),
	}
}

func defaultDeviceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "lumina"
	}
	return host
}
