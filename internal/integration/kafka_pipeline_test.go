//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nwstraits/survey-etl/internal/adapter/attachments"
	"github.com/nwstraits/survey-etl/internal/adapter/kafka"
	"github.com/nwstraits/survey-etl/internal/adapter/noaa"
	"github.com/nwstraits/survey-etl/internal/adapter/xlsx"
	"github.com/nwstraits/survey-etl/internal/config"
	"github.com/nwstraits/survey-etl/internal/domain"
	"github.com/nwstraits/survey-etl/internal/observability"
	"github.com/nwstraits/survey-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/xuri/excelize/v2"
)

const testSinkTopic = "test-survey-records"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("survey-etl-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// fakeNOAA serves every station as a reference station with a 0.50 m
// one-minute water level.
func fakeNOAA(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/tidepredoffsets.json"):
			_, _ = w.Write([]byte(`{"type":"R"}`))
		case r.URL.Path == "/api/prod/datagetter":
			_, _ = w.Write([]byte(`{"data":[{"t":"2023-07-14 09:30","v":"0.50"}]}`))
		default:
			_, _ = w.Write([]byte(`{"stations":[]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeExport(t *testing.T, dir string) string {
	t.Helper()
	rows := [][]any{
		{"_uuid", "_submission_time", "survey_date", "kelp_bed_name", "data_county", "start_tidal_height_ft", "tide_stn_label", "tide_stn_name", "survey_start_time", "closest_edge_depth1", "to_beach_photo"},
		{"k1", "2023-07-20T18:01:22", "2023-07-14", "Freshwater Bay", "Clallam", 2.5, "Port Angeles", "9444090", "09:30", 10, "beach.jpg"},
		{"k2", "2023-07-21T10:00:00", "2023-07-15", "Keystone", "Island", 1.0, "Admiralty Head", "9447905", "10:00", 8, ""},
		{"bad", "2023-07-21T10:00:00", "2023-07-15", "Nowhere", "Island", 1.0, "", "not-a-station", "10:00", 8, ""},
	}
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(dir, "kelp.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// TestPipelinePublishesSurveys runs an export through the full pipeline with a
// real Kafka sink and checks the published GIS rows.
func TestPipelinePublishesSurveys(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	srcDir, outDir := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "beach.jpg"), []byte("jpg"), 0o600))
	exportPath := writeExport(t, t.TempDir())

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaSinkTopic: testSinkTopic}
	metrics := observability.NewMetricsForTesting()

	tides := noaa.NewClient(fakeNOAA(t).URL, "test", 5*time.Second, metrics, discardLogger())
	registry := domain.NewStationRegistry(tides, discardLogger(), metrics)

	store := attachments.NewStore(srcDir, outDir, discardLogger())
	require.NoError(t, store.Index())

	reader, err := xlsx.NewReader(exportPath, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	collector := pipeline.NewCollector()
	transformer := pipeline.NewTransformer(domain.KindKelp, time.Time{}, registry, tides, store, discardLogger(), metrics)
	p := pipeline.New(reader, transformer, pipeline.MultiLoader{store, collector, writer}, discardLogger(), metrics, 2, 2)

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 2, collector.Len())
	assert.Equal(t, int64(1), p.Status().(pipeline.Status).Skipped)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]domain.GISRow)
	for len(received) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from sink topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, domain.KindKelp, headers["survey_kind"])
		_, err = time.Parse(time.RFC3339, headers["processed_at"])
		assert.NoError(t, err, "processed_at should be valid RFC3339")

		var row domain.GISRow
		require.NoError(t, json.Unmarshal(msg.Value, &row))
		received[string(msg.Key)] = row
	}

	k1, ok := received["k1"]
	require.True(t, ok)
	assert.Equal(t, "Port Angeles", k1.TideStation)
	require.NotNil(t, k1.MLLWD1Shore)
	assert.InDelta(t, 2.55, *k1.MLLWD1Shore, 1e-9)
	assert.Equal(t, filepath.Join(outDir, "Clallam", domain.FolderSitePhotos, "Clallam_Freshwater Bay_2023_07_14_1_ToBe.jpg"), k1.ToBeFile)
	assert.FileExists(t, k1.ToBeFile)

	k2, ok := received["k2"]
	require.True(t, ok)
	require.NotNil(t, k2.MLLWTidalHeight)
	assert.InDelta(t, -0.2, *k2.MLLWTidalHeight, 1e-9)
}
