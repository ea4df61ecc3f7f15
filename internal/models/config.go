package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// Upload policy
	Upload UploadConfig `yaml:"upload"`

	// Preprocessing and batch execution
	Pipeline PipelineConfig `yaml:"pipeline"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// AI vision engine credentials
	AI AIConfig `yaml:"ai"`

	// Result store
	Results ResultsConfig `yaml:"results"`

	// JSON API auth
	Auth AuthConfig `yaml:"auth"`
}

// UploadConfig bounds what a single request may submit
type UploadConfig struct {
	AllowedTypes  []string `yaml:"allowed_types"`   // lowercase extensions, e.g. png, jpg
	MaxFileSizeMB int      `yaml:"max_file_size_mb"`
	MaxBatchSize  int      `yaml:"max_batch_size"`
}

// MaxFileSizeBytes returns the per-file limit in bytes
func (u UploadConfig) MaxFileSizeBytes() int64 {
	return int64(u.MaxFileSizeMB) << 20
}

// PipelineConfig controls the filter chain and the worker pool
type PipelineConfig struct {
	DenoiseRadius  int    `yaml:"denoise_radius"`  // median filter radius, 1 = 3x3 window, 0 disables
	Threshold      string `yaml:"threshold"`       // "fixed" or "otsu"
	ThresholdValue int    `yaml:"threshold_value"` // cutoff for "fixed"
	MaxDimension   int    `yaml:"max_dimension"`   // downscale bound in px, 0 disables
	Workers        int    `yaml:"workers"`         // pool size, 1 = sequential
	BatchTimeoutMS int    `yaml:"batch_timeout_ms"` // whole-batch deadline, 0 disables
}

// OCRConfig represents OCR-specific configuration
type OCRConfig struct {
	Engine   string `yaml:"engine"`   // "tesseract", "gemini" or "openai"
	Language string `yaml:"language"` // recognition language (default: "eng")
}

// AIConfig represents AI vision provider configuration
type AIConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`              // Default: "gpt-4o"
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-1.5-flash"
}

// ResultsConfig controls how long finished batches stay downloadable
type ResultsConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// AuthConfig configures token auth for the JSON API
type AuthConfig struct {
	JWTSecret     string      `yaml:"jwt_secret"`
	TokenTTLHours int         `yaml:"token_ttl_hours"`
	Clients       []APIClient `yaml:"clients"`
}

// APIClient is one credentialed caller of the JSON API
type APIClient struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	SecretHash string `yaml:"secret_hash"` // bcrypt hash of the client secret
}
