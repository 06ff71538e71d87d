package noaa

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nwstraits/survey-etl/internal/domain"
	"github.com/nwstraits/survey-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	testApplication   = "survey-etl-test"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testApplication, 5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchStationInfo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mdapi/prod/webapi/stations/9444090.json", r.URL.Path)
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"count":1,"stations":[{"id":"9444090","name":"Port Angeles","state":"WA"}]}`))
	}))
	defer srv.Close()

	reply, err := testClient(srv.URL).FetchStationInfo(context.Background(), 9444090)
	require.NoError(t, err)

	require.Len(t, reply.Stations, 1)
	assert.Equal(t, "9444090", reply.Stations[0].ID.String())
	assert.Equal(t, "Port Angeles", reply.Stations[0].Name)
}

func TestClient_FetchTideOffsets_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mdapi/prod/webapi/stations/9448794/tidepredoffsets.json", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"refStationId":"9444900","type":"S","heightOffsetHighTide":0.93,
			"heightOffsetLowTide":1.02,"timeOffsetHighTide":18,"timeOffsetLowTide":29,"heightAdjustedType":"R"}`))
	}))
	defer srv.Close()

	reply, err := testClient(srv.URL).FetchTideOffsets(context.Background(), 9448794)
	require.NoError(t, err)

	assert.Equal(t, domain.TideOffsetsReply{
		RefStationID:         "9444900",
		Type:                 "S",
		HeightAdjustedType:   "R",
		HeightOffsetHighTide: 0.93,
		HeightOffsetLowTide:  1.02,
		TimeOffsetHighTide:   18,
		TimeOffsetLowTide:    29,
	}, reply)
}

func TestClient_FetchWaterData_Params(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/prod/datagetter", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, testApplication, q.Get("application"))
		assert.Equal(t, "20230714 09:24", q.Get("begin_date"))
		assert.Equal(t, "20230714 09:36", q.Get("end_date"))
		assert.Equal(t, "9447130", q.Get("station"))
		assert.Equal(t, domain.ProductWaterLevel, q.Get("product"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "lst_ldt", q.Get("time_zone"))
		assert.Equal(t, "MLLW", q.Get("datum"))
		assert.Equal(t, "json", q.Get("format"))

		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(domain.WaterDataReply{
			Data: []domain.WaterDataPoint{{Time: "2023-07-14 09:24", Value: "1.10"}},
		}))
	}))
	defer srv.Close()

	begin := time.Date(2023, 7, 14, 9, 24, 0, 0, time.UTC)
	reply, err := testClient(srv.URL).FetchWaterData(context.Background(), 9447130, begin, begin.Add(12*time.Minute), domain.ProductWaterLevel)
	require.NoError(t, err)

	require.Len(t, reply.Data, 1)
	assert.Equal(t, "1.10", reply.Data[0].Value)
}

func TestClient_FetchWaterData_DefaultProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, domain.ProductOneMinuteWaterLevel, r.URL.Query().Get("product"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	at := time.Date(2023, 7, 14, 9, 30, 0, 0, time.UTC)
	reply, err := testClient(srv.URL).FetchWaterData(context.Background(), 9447130, at, at, "")
	require.NoError(t, err)
	assert.Empty(t, reply.Data)
}

func TestClient_FetchWaterData_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"No data was found."}}`))
	}))
	defer srv.Close()

	at := time.Date(2023, 7, 14, 9, 30, 0, 0, time.UTC)
	reply, err := testClient(srv.URL).FetchWaterData(context.Background(), 9447130, at, at, domain.ProductOneMinuteWaterLevel)
	require.NoError(t, err)
	assert.Empty(t, reply.Data)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "No data was found.", reply.Error.Message)
}

func TestClient_Non200_ReturnsPartialBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"stations":[]}`))
	}))
	defer srv.Close()

	reply, err := testClient(srv.URL).FetchStationInfo(context.Background(), 1234567)
	require.NoError(t, err)
	assert.Empty(t, reply.Stations)
}

func TestClient_Non200_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reply, err := testClient(srv.URL).FetchTideOffsets(context.Background(), 9447130)
	require.NoError(t, err)
	assert.Equal(t, domain.TideOffsetsReply{}, reply)
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	reply, err := testClient(srv.URL).FetchTideOffsets(context.Background(), 9447130)
	require.NoError(t, err)
	assert.Equal(t, domain.TideOffsetsReply{}, reply)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 20 * time.Millisecond

	_, err := c.FetchStationInfo(context.Background(), 9447130)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "noaa station request")
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).FetchTideOffsets(ctx, 9447130)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("", testApplication, time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}

// Compile-time check that Client satisfies the domain port.
var _ domain.TideDataSource = (*Client)(nil)
