package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/textsnap/batch-ocr-service/api"
	"github.com/textsnap/batch-ocr-service/internal/auth"
	"github.com/textsnap/batch-ocr-service/internal/engine"
	"github.com/textsnap/batch-ocr-service/internal/models"
	"github.com/textsnap/batch-ocr-service/internal/ocr"
	"github.com/textsnap/batch-ocr-service/internal/store"
)

func main() {
	// Load configuration
	config, err := loadConfig(configPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize JWT
	if err := auth.Init(config.Auth); err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}
	log.Println("JWT authentication initialized")

	// Build the recognition engine
	eng, err := engine.New(config)
	if err != nil {
		log.Fatalf("Failed to create OCR engine: %v", err)
	}

	// Assemble the pipeline
	validator := ocr.NewValidator(config.Upload)
	preprocessor := ocr.NewPreprocessor(config.Pipeline)
	extractor := ocr.NewExtractor(eng, config.OCR.Language)
	orchestrator := ocr.NewOrchestrator(validator, preprocessor, extractor, config.Pipeline)

	// Result store for downloads and the JSON API
	resultStore := store.NewResultStore(time.Duration(config.Results.TTLMinutes) * time.Minute)
	defer resultStore.Close()

	// Create API handler
	handler := api.NewHandler(config, validator, orchestrator, resultStore, eng.Name())
	router := handler.SetupRoutes()

	// Wrap router with JWT middleware (protects /api/ except /api/login)
	protectedRouter := auth.JWTMiddleware(router)

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Printf("Starting Batch OCR Service v%s on %s", api.Version, addr)
	log.Printf("OCR Engine: %s (language %s)", eng.Name(), config.OCR.Language)
	log.Printf("Upload limits: %d files per batch, %dMB per file", validator.MaxBatchSize(), validator.MaxFileSizeMB())
	log.Printf("Endpoints:")
	log.Printf("  GET  http://%s/                          - Upload page", addr)
	log.Printf("  POST http://%s/                          - Process a batch (multipart)", addr)
	log.Printf("  GET  http://%s/download/{id}/{n|all}     - Download extracted text", addr)
	log.Printf("  POST http://%s/api/login                 - Authenticate", addr)
	log.Printf("  POST http://%s/api/v1/batches            - Process a batch (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/v1/batches/{id}       - Fetch a processed batch (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/v1/batches/{id}/text/{n|all} - Download via API (requires JWT)", addr)
	log.Printf("  GET  http://%s/health                    - Health check", addr)

	if err := http.ListenAndServe(addr, protectedRouter); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}

func loadConfig(path string) (*models.Config, error) {
	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if engineName := os.Getenv("OCR_ENGINE"); engineName != "" {
		config.OCR.Engine = engineName
	}
	if language := os.Getenv("OCR_LANGUAGE"); language != "" {
		config.OCR.Language = language
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.AI.OpenAI.Model = model
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.AI.Gemini.Model = model
	}

	// Sensible defaults when the file leaves them out
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.OCR.Language == "" {
		config.OCR.Language = "eng"
	}

	return &config, nil
}
