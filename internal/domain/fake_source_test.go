package domain

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nwstraits/survey-etl/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type waterQuery struct {
	StationID  int
	Begin, End time.Time
	Product    string
}

// fakeTideSource is an in-memory TideDataSource that counts calls.
type fakeTideSource struct {
	mu sync.Mutex

	stations map[int]StationInfoReply
	offsets  map[int]TideOffsetsReply
	water    map[string]WaterDataReply // keyed by product
	err      error
	delay    time.Duration

	stationCalls int
	offsetCalls  int
	waterQueries []waterQuery
}

func newFakeTideSource() *fakeTideSource {
	return &fakeTideSource{
		stations: make(map[int]StationInfoReply),
		offsets:  make(map[int]TideOffsetsReply),
		water:    make(map[string]WaterDataReply),
	}
}

func (f *fakeTideSource) FetchStationInfo(_ context.Context, id int) (StationInfoReply, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stationCalls++
	return f.stations[id], f.err
}

func (f *fakeTideSource) FetchTideOffsets(_ context.Context, id int) (TideOffsetsReply, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsetCalls++
	return f.offsets[id], f.err
}

func (f *fakeTideSource) FetchWaterData(_ context.Context, id int, begin, end time.Time, product string) (WaterDataReply, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waterQueries = append(f.waterQueries, waterQuery{StationID: id, Begin: begin, End: end, Product: product})
	return f.water[product], f.err
}

func (f *fakeTideSource) waterCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waterQueries)
}

func (f *fakeTideSource) counts() (stations, offsets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stationCalls, f.offsetCalls
}

func waterReply(values ...string) WaterDataReply {
	r := WaterDataReply{Data: []WaterDataPoint{}}
	for _, v := range values {
		r.Data = append(r.Data, WaterDataPoint{Time: "2023-07-14 09:30", Value: v})
	}
	return r
}

func newTestRegistry(src TideDataSource) *StationRegistry {
	return NewStationRegistry(src, discardLogger(), observability.NewMetricsForTesting())
}
