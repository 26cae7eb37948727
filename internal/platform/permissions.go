// Package platform provides the location and permission services for a
// host without a device GPS: grants come from configuration and positions
// are pushed in by the user or an MCP client.
package platform

import (
	"context"

	"github.com/notexe/forget-me-not/internal/config"
)

// StaticPermissions answers permission requests from configuration.
type StaticPermissions struct {
	cfg config.PermissionsConfig
}

// NewStaticPermissions creates a permission service answering from cfg.
func NewStaticPermissions(cfg config.PermissionsConfig) *StaticPermissions {
	return &StaticPermissions{cfg: cfg}
}

// RequestForegroundLocation returns the configured foreground grant.
func (p *StaticPermissions) RequestForegroundLocation(context.Context) (bool, error) {
	return p.cfg.Foreground, nil
}

// RequestBackgroundLocation is only granted together with foreground access.
func (p *StaticPermissions) RequestBackgroundLocation(context.Context) (bool, error) {
	return p.cfg.Foreground && p.cfg.Background, nil
}

// RequestNotifications returns the configured notification grant.
func (p *StaticPermissions) RequestNotifications(context.Context) (bool, error) {
	return p.cfg.Notifications, nil
}
