package types

// ScannerConfig describes how to invoke the external scanner binary.
type ScannerConfig struct {
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
	Marker         string   `yaml:"marker"` // literal infection marker searched in output
	TimeoutSeconds int      `yaml:"timeoutSeconds"`
}

// AppConfig is the immutable application configuration. It is loaded once
// and passed explicitly into the orchestrator and its collaborators.
type AppConfig struct {
	Port           int           `yaml:"port"`
	UploadFolder   string        `yaml:"uploadFolder"` // durable storage
	TempFolder     string        `yaml:"tempFolder"`   // primary temp tier
	Namespace      string        `yaml:"namespace"`    // subdir name under the OS temp root (fallback tier)
	IndexPath      string        `yaml:"indexPath"`    // metadata index file
	AllowedExts    []string      `yaml:"allowedExtensions"`
	MaxFileSize    int64         `yaml:"maxFileSize"` // bytes, 0 = unlimited
	MaxRetries     int           `yaml:"maxRetries"`  // transfer attempts per file
	ScanEnabled    bool          `yaml:"scanEnabled"`
	Scanner        ScannerConfig `yaml:"scanner"`
	RateLimitPPS   float64       `yaml:"rateLimitPPS"` // upload requests per second per client, 0 = off
	RateLimitBurst int           `yaml:"rateLimitBurst"`
}

// ExtensionAllowed checks ext (without dot, case-insensitive match is the
// caller's job) against the allow-list; an empty list allows everything.
func (c *AppConfig) ExtensionAllowed(ext string) bool {
	if len(c.AllowedExts) == 0 {
		return true
	}
	for _, allowed := range c.AllowedExts {
		if allowed == ext {
			return true
		}
	}
	return false
}
