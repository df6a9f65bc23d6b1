package driving

import "github.com/custodia-labs/tbqa/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting by its config key.
	Set(key, value string) error

	// Unset removes a stored setting so its default applies again.
	Unset(key string) error

	// Keys returns the recognised config keys in display order.
	Keys() []string

	// Validate checks the current settings and reports every problem found.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
