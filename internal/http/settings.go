package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SettingsController reads and updates the Drive folder and device name.
type SettingsController struct {
	settings Settings
	audit    AuditLog
	logger   zerolog.Logger
}

func NewSettingsController(settings Settings, audit AuditLog, logger zerolog.Logger) *SettingsController {
	return &SettingsController{
		settings: settings,
		audit:    audit,
		logger:   logger,
	}
}

// UpdateSettingsRequest carries the fields to change. An absent field is
// left as is; an empty drive_folder_id clears the stored folder.
type UpdateSettingsRequest struct {
	DriveFolderID *string `json:"drive_folder_id"`
	DeviceName    *string `json:"device_name"`
}

// GetSettings handles GET /api/settings
func (sc *SettingsController) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, sc.settings.GetInfo())
}

// UpdateSettings handles PUT /api/settings
func (sc *SettingsController) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.DeviceName != nil && strings.TrimSpace(*req.DeviceName) == "" {
		respondBadRequest(c, "device_name must not be empty")
		return
	}

	if req.DriveFolderID != nil {
		folder := strings.TrimSpace(*req.DriveFolderID)
		var err error
		if folder == "" {
			err = sc.settings.ClearDriveFolderID()
		} else {
			err = sc.settings.SetDriveFolderID(folder)
		}
		if err != nil {
			respondFailure(c, sc.logger, err, "update drive folder")
			return
		}
		sc.logChange("drive_folder_updated", "Drive folder set to "+displayValue(folder))
	}

	if req.DeviceName != nil {
		name := strings.TrimSpace(*req.DeviceName)
		if err := sc.settings.SetDeviceName(name); err != nil {
			respondFailure(c, sc.logger, err, "update device name")
			return
		}
		sc.logChange("device_name_updated", "Device name set to "+name)
	}

	c.JSON(http.StatusOK, sc.settings.GetInfo())
}

func (sc *SettingsController) logChange(action, description string) {
	if sc.audit != nil {
		sc.audit.LogSettings(action, description)
	}
}

func displayValue(v string) string {
	if v == "" {
		return "(all files)"
	}
	return v
}
