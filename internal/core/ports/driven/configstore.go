package driven

// ConfigStore holds raw settings under flat dot-notation keys ("llm.model").
// Values come back as the backing format decoded them; SettingsService owns
// type conversion and defaults.
type ConfigStore interface {
	// Get returns the raw value for key and whether it is set.
	Get(key string) (any, bool)

	// Set stores value under key. File-backed stores persist immediately.
	Set(key string, value any) error

	// Unset removes key so its default applies again. Removing an absent key is not an error.
	Unset(key string) error

	// Keys returns the keys currently set, sorted.
	Keys() []string

	// Save persists the current values.
	Save() error

	// Load replaces the current values with the persisted ones.
	Load() error

	// Path describes where values are persisted.
	Path() string
}
