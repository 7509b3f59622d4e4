package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Sumit2809/PII-Final/ner"
	"github.com/Sumit2809/PII-Final/ocr"
)

// Global Variables and Constants
var (

	// Logger
	log = logrus.New()

	// Environment Variables
	ocrProvider        = strings.ToLower(getEnvOrDefault("OCR_PROVIDER", "tesseract"))
	nerProvider        = strings.ToLower(getEnvOrDefault("NER_PROVIDER", "spacy"))
	tesseractLanguages = os.Getenv("TESSERACT_LANGUAGES")
	tesseractDataPath  = os.Getenv("TESSERACT_DATA_PREFIX")
	googleProjectID    = os.Getenv("GOOGLE_PROJECT_ID")
	googleLocation     = os.Getenv("GOOGLE_LOCATION")
	googleProcessorID  = os.Getenv("GOOGLE_PROCESSOR_ID")
	spacyURL           = os.Getenv("SPACY_URL")
	indicNerURL        = os.Getenv("INDIC_NER_URL")
	indicNerToken      = os.Getenv("INDIC_NER_TOKEN")
	llmProvider        = strings.ToLower(os.Getenv("LLM_PROVIDER"))
	llmModel           = os.Getenv("LLM_MODEL")
	logLevel           = strings.ToLower(os.Getenv("LOG_LEVEL"))

	// NER prompt template, loaded from disk at startup
	nerPromptText string
)

// App struct to hold dependencies
type App struct {
	OCR            ocr.Provider
	NER            ner.Provider
	PageWorkers    int
	MaxFileSize    int64
	EnableHOCR     bool
	HOCROutputPath string
}

func main() {
	// Validate Environment Variables
	validateEnvVars()

	// Initialize logrus logger
	initLogger()

	// Load NER prompt template
	loadTemplates()

	// Initialize OCR provider
	ocrConfig := ocr.Config{
		Provider:           ocrProvider,
		TesseractLanguages: parseLanguages(tesseractLanguages),
		TesseractDataPath:  tesseractDataPath,
		GoogleProjectID:    googleProjectID,
		GoogleLocation:     googleLocation,
		GoogleProcessorID:  googleProcessorID,
	}
	ocrBackend, err := ocr.NewProvider(ocrConfig)
	if err != nil {
		log.Fatalf("Failed to create OCR provider: %v", err)
	}

	// Initialize NER provider
	nerConfig := ner.Config{
		Provider:          nerProvider,
		SpacyURL:          spacyURL,
		IndicURL:          indicNerURL,
		IndicToken:        indicNerToken,
		LLMProvider:       llmProvider,
		LLMModel:          llmModel,
		LLMPrompt:         nerPromptText,
		RequestsPerMinute: getEnvFloat("LLM_REQUESTS_PER_MINUTE", 0),
		MaxRetries:        getEnvInt("LLM_MAX_RETRIES", 3),
	}
	nerBackend, err := ner.NewProvider(nerConfig)
	if err != nil {
		log.Fatalf("Failed to create NER provider: %v", err)
	}

	// Initialize App with dependencies
	app := &App{
		OCR:            ocrBackend,
		NER:            nerBackend,
		PageWorkers:    getEnvInt("PII_PAGE_WORKERS", 4),
		MaxFileSize:    int64(getEnvInt("PII_MAX_FILE_SIZE", 50*1024*1024)),
		EnableHOCR:     os.Getenv("ENABLE_HOCR") == "true",
		HOCROutputPath: getEnvOrDefault("HOCR_OUTPUT_PATH", "hocr_output"),
	}
	log.Infof("Using OCR provider %q and NER provider %q", ocrProvider, nerProvider)

	// Create a Gin router with default middleware (logger and recovery)
	router := gin.Default()

	// API routes
	api := router.Group("/api")
	{
		api.POST("/detect", app.detectHandler)
		api.POST("/redact", app.redactHandler)
		api.GET("/labels", labelsHandler)
	}

	log.Infoln("Server started on port :8080")
	if err := router.Run(":8080"); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

func initLogger() {
	switch logLevel {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		if logLevel != "" {
			log.Fatalf("Invalid log level: '%s'.", logLevel)
		}
	}

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	ocr.SetLogLevel(log.GetLevel())
	ner.SetLogLevel(log.GetLevel())
}

// validateEnvVars ensures all necessary environment variables are set
func validateEnvVars() {
	switch ocrProvider {
	case "tesseract":
		// No required configuration; data path and languages are optional.
	case "google_docai":
		if googleProjectID == "" || googleLocation == "" || googleProcessorID == "" {
			log.Fatal("Please set the GOOGLE_PROJECT_ID, GOOGLE_LOCATION and GOOGLE_PROCESSOR_ID environment variables for the google_docai OCR provider.")
		}
	default:
		log.Fatalf("Please set the OCR_PROVIDER environment variable to 'tesseract' or 'google_docai', got '%s'.", ocrProvider)
	}

	switch nerProvider {
	case "spacy":
		if spacyURL == "" {
			log.Fatal("Please set the SPACY_URL environment variable for the spacy NER provider.")
		}
	case "indic":
		if indicNerURL == "" {
			log.Fatal("Please set the INDIC_NER_URL environment variable for the indic NER provider.")
		}
	case "llm":
		if llmProvider == "" {
			log.Fatal("Please set the LLM_PROVIDER environment variable to 'openai', 'ollama' or 'mistral' for the llm NER provider.")
		}
		if llmModel == "" {
			log.Fatal("Please set the LLM_MODEL environment variable for the llm NER provider.")
		}
		if llmProvider == "openai" && os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("OPENAI_BASE_URL") == "" {
			log.Fatal("Please set the OPENAI_API_KEY environment variable for the OpenAI provider.")
		}
		if llmProvider == "mistral" && os.Getenv("MISTRAL_API_KEY") == "" {
			log.Fatal("Please set the MISTRAL_API_KEY environment variable for the Mistral provider.")
		}
	default:
		log.Fatalf("Please set the NER_PROVIDER environment variable to 'spacy', 'indic' or 'llm', got '%s'.", nerProvider)
	}
}

// loadTemplates loads the NER prompt template from disk or seeds the
// default, failing fast when the template does not parse
func loadTemplates() {
	promptsDir := "prompts"
	if err := os.MkdirAll(promptsDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create prompts directory: %v", err)
	}

	nerTemplatePath := filepath.Join(promptsDir, "ner_prompt.tmpl")
	nerTemplateContent, err := os.ReadFile(nerTemplatePath)
	if err != nil {
		log.Errorf("Could not read %s, using default template: %v", nerTemplatePath, err)
		nerTemplateContent = []byte(ner.DefaultPrompt)
		if err := os.WriteFile(nerTemplatePath, nerTemplateContent, os.ModePerm); err != nil {
			log.Fatalf("Failed to write default NER template to disk: %v", err)
		}
	}
	if _, err := template.New("ner").Funcs(sprig.FuncMap()).Parse(string(nerTemplateContent)); err != nil {
		log.Fatalf("Failed to parse NER template: %v", err)
	}
	nerPromptText = string(nerTemplateContent)
}

// parseLanguages splits a language list like "eng+hin" or "eng,hin"
// into its codes
func parseLanguages(value string) []string {
	separators := func(r rune) bool { return r == ',' || r == '+' }

	var languages []string
	for _, lang := range strings.FieldsFunc(value, separators) {
		lang = strings.TrimSpace(lang)
		if lang != "" {
			languages = append(languages, lang)
		}
	}
	return languages
}

// getEnvOrDefault returns the environment value for key or the fallback
func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt parses an integer environment variable with a fallback
func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Invalid value for %s: '%s'.", key, value)
	}
	return parsed
}

// getEnvFloat parses a float environment variable with a fallback
func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Fatalf("Invalid value for %s: '%s'.", key, value)
	}
	return parsed
}
