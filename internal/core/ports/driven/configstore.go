package driven

// ConfigStore answers typed lookups against user-edited configuration.
// Keys are dot paths into the document: "index.roots",
// "index.rescan_interval_minutes", "scan.workers", "extract.max_bytes",
// "extract.max_tokens", "watch.enabled". Missing keys and type
// mismatches yield the zero value.
type ConfigStore interface {
	// GetString retrieves a string configuration value.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	GetInt(key string) int

	// GetBool retrieves a boolean configuration value.
	GetBool(key string) bool

	// GetStringSlice retrieves a string list configuration value.
	GetStringSlice(key string) []string

	// Path returns the location of the backing configuration file.
	Path() string
}
