package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInput       = "/data/kelp_2023.xlsx"
	testAttachments = "/data/attachments"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("INPUT_XLSX", testInput)
	t.Setenv("ATTACHMENTS_DIR", testAttachments)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "kelp", cfg.SurveyKind)
	assert.Equal(t, time.Now().Year(), cfg.SurveyYear)
	assert.Equal(t, testInput, cfg.InputXLSX)
	assert.Equal(t, testAttachments, cfg.AttachmentsDir)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.True(t, cfg.StartDate.IsZero())
	assert.Equal(t, "https://api.tidesandcurrents.noaa.gov", cfg.NOAABaseURL)
	assert.Equal(t, "nwstraits.org", cfg.NOAAApplication)
	assert.Equal(t, 10*time.Second, cfg.NOAATimeout)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "survey-records", cfg.KafkaSinkTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("SURVEY_KIND", "anchoring")
	t.Setenv("SURVEY_YEAR", "2023")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("START_DATE", "2023-06-01")
	t.Setenv("NOAA_BASE_URL", "http://localhost:9999")
	t.Setenv("NOAA_APPLICATION", "test-app")
	t.Setenv("NOAA_TIMEOUT", "3s")
	t.Setenv("WORKERS", "4")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anchoring", cfg.SurveyKind)
	assert.Equal(t, 2023, cfg.SurveyYear)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, "http://localhost:9999", cfg.NOAABaseURL)
	assert.Equal(t, "test-app", cfg.NOAAApplication)
	assert.Equal(t, 3*time.Second, cfg.NOAATimeout)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"BATCH_SIZE", "0", "BATCH_SIZE"},
		{"BATCH_SIZE", "9999", "BATCH_SIZE"},
		{"NOAA_TIMEOUT", "bad", "NOAA_TIMEOUT"},
		{"NOAA_TIMEOUT", "0s", "NOAA_TIMEOUT"},
		{"WORKERS", "0", "WORKERS"},
		{"WORKERS", "many", "WORKERS"},
		{"SURVEY_YEAR", "23", "SURVEY_YEAR"},
		{"SURVEY_KIND", "eelgrass", "SURVEY_KIND"},
		{"START_DATE", "someday", "START_DATE"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_RequiresInputs(t *testing.T) {
	t.Setenv("ATTACHMENTS_DIR", testAttachments)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INPUT_XLSX")

	t.Setenv("INPUT_XLSX", testInput)
	t.Setenv("ATTACHMENTS_DIR", "")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ATTACHMENTS_DIR")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestRuntimeParams(t *testing.T) {
	setRequired(t)
	t.Setenv("SURVEY_YEAR", "2023")
	t.Setenv("START_DATE", "2023-06-01")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, [][2]string{
		{"Year", "2023"},
		{"Excel File", testInput},
		{"Attachments", testAttachments},
		{"Target", "output"},
		{"Start Date", "2023-06-01"},
	}, cfg.RuntimeParams())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SURVEY_DOTENV_PROBE=from-file\n"), 0o600))
	t.Setenv("SURVEY_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("SURVEY_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("SURVEY_DOTENV_PROBE"))
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
