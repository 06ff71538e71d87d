package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/nwstraits/survey-etl/internal/domain"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	SurveyKind     string
	SurveyYear     int
	InputXLSX      string
	AttachmentsDir string
	OutputDir      string
	StartDate      time.Time // zero means no filter

	NOAABaseURL     string
	NOAAApplication string
	NOAATimeout     time.Duration

	Workers   int
	BatchSize int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// LoadDotEnv loads variables from a .env file without overriding the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	noaaTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("NOAA_TIMEOUT", "10s"))
	if err != nil || noaaTimeout <= 0 {
		return nil, errors.New("invalid NOAA_TIMEOUT")
	}

	workers, err := parseWorkers()
	if err != nil {
		return nil, err
	}

	surveyYear, err := parseSurveyYear()
	if err != nil {
		return nil, err
	}

	var startDate time.Time
	if s := os.Getenv("START_DATE"); s != "" {
		startDate, err = dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return nil, errors.New("invalid START_DATE")
		}
	}

	cfg := &Config{
		SurveyKind:     sharedcfg.EnvOrDefault("SURVEY_KIND", domain.KindKelp),
		SurveyYear:     surveyYear,
		InputXLSX:      os.Getenv("INPUT_XLSX"),
		AttachmentsDir: os.Getenv("ATTACHMENTS_DIR"),
		OutputDir:      sharedcfg.EnvOrDefault("OUTPUT_DIR", "output"),
		StartDate:      startDate,

		NOAABaseURL:     sharedcfg.EnvOrDefault("NOAA_BASE_URL", "https://api.tidesandcurrents.noaa.gov"),
		NOAAApplication: sharedcfg.EnvOrDefault("NOAA_APPLICATION", "nwstraits.org"),
		NOAATimeout:     noaaTimeout,

		Workers:   workers,
		BatchSize: batchSize,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "survey-records"),
	}

	if cfg.SurveyKind != domain.KindKelp && cfg.SurveyKind != domain.KindAnchoring {
		return nil, fmt.Errorf("invalid SURVEY_KIND %q: must be %s or %s", cfg.SurveyKind, domain.KindKelp, domain.KindAnchoring)
	}
	if cfg.InputXLSX == "" {
		return nil, errors.New("INPUT_XLSX is required")
	}
	if cfg.AttachmentsDir == "" {
		return nil, errors.New("ATTACHMENTS_DIR is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// RuntimeParams lists the settings echoed at the top of the extraction log.
func (c *Config) RuntimeParams() [][2]string {
	params := [][2]string{
		{"Year", strconv.Itoa(c.SurveyYear)},
		{"Excel File", c.InputXLSX},
		{"Attachments", c.AttachmentsDir},
		{"Target", c.OutputDir},
	}
	if !c.StartDate.IsZero() {
		params = append(params, [2]string{"Start Date", c.StartDate.Format("2006-01-02")})
	}
	return params
}

func parseWorkers() (int, error) {
	s := os.Getenv("WORKERS")
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 64 {
		return 0, errors.New("invalid WORKERS: must be 1-64")
	}
	return n, nil
}

func parseSurveyYear() (int, error) {
	s := os.Getenv("SURVEY_YEAR")
	if s == "" {
		return time.Now().Year(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 2000 || n > 2100 {
		return 0, errors.New("invalid SURVEY_YEAR")
	}
	return n, nil
}
