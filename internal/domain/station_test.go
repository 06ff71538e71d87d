package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationRegistry_SeededHit(t *testing.T) {
	src := newFakeTideSource()
	r := newTestRegistry(src)

	got, err := r.LookupStation(context.Background(), 9447130)
	require.NoError(t, err)
	assert.Equal(t, Station{Name: "Seattle", ID: 9447130}, got)

	stations, _ := src.counts()
	assert.Zero(t, stations)
	assert.Len(t, r.Stations(), len(knownStations))
}

func TestStationRegistry_MissFetchesOnce(t *testing.T) {
	src := newFakeTideSource()
	src.stations[9444071] = StationInfoReply{Stations: []StationInfo{{ID: "9444071", Name: "Oak Bay"}}}
	r := newTestRegistry(src)

	for range 2 {
		got, err := r.LookupStation(context.Background(), 9444071)
		require.NoError(t, err)
		assert.Equal(t, Station{Name: "Oak Bay", ID: 9444071}, got)
	}

	stations, _ := src.counts()
	assert.Equal(t, 1, stations)
}

func TestStationRegistry_ConcurrentMissesShareFetch(t *testing.T) {
	src := newFakeTideSource()
	src.delay = 20 * time.Millisecond
	src.stations[9444071] = StationInfoReply{Stations: []StationInfo{{ID: "9444071", Name: "Oak Bay"}}}
	r := newTestRegistry(src)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.LookupStation(context.Background(), 9444071)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stations, _ := src.counts()
	assert.Equal(t, 1, stations)
}

func TestStationRegistry_NotFound(t *testing.T) {
	src := newFakeTideSource()
	r := newTestRegistry(src)

	_, err := r.LookupStation(context.Background(), 1234567)
	require.Error(t, err)

	var lookupErr *StationLookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, 1234567, lookupErr.StationID)
	assert.Equal(t, "failed to find NOAA station: 1234567", err.Error())
}

func TestStationRegistry_TransportError(t *testing.T) {
	src := newFakeTideSource()
	src.err = errors.New("no route to host")
	r := newTestRegistry(src)

	_, err := r.LookupStation(context.Background(), 1234567)
	require.Error(t, err)
	assert.ErrorIs(t, err, src.err)

	var lookupErr *StationLookupError
	assert.False(t, errors.As(err, &lookupErr))
}

func TestStationRegistry_CorrectionCached(t *testing.T) {
	src := newFakeTideSource()
	src.offsets[9447130] = TideOffsetsReply{Type: "R"}
	r := newTestRegistry(src)

	for range 3 {
		c, err := r.Correction(context.Background(), 9447130)
		require.NoError(t, err)
		assert.Equal(t, IdentityCorrection(9447130), c)
	}

	_, offsets := src.counts()
	assert.Equal(t, 1, offsets)
	assert.False(t, r.CorrectionMissing(context.Background(), 9447130))
}

func TestStationRegistry_UnknownCorrectionRefetched(t *testing.T) {
	src := newFakeTideSource()
	src.offsets[9449424] = TideOffsetsReply{Type: "?"}
	r := newTestRegistry(src)

	c, err := r.Correction(context.Background(), 9449424)
	require.NoError(t, err)
	assert.True(t, c.IsUnknown())
	assert.True(t, r.CorrectionMissing(context.Background(), 9449424))

	src.mu.Lock()
	src.offsets[9449424] = TideOffsetsReply{Type: "R"}
	src.mu.Unlock()

	c, err = r.Correction(context.Background(), 9449424)
	require.NoError(t, err)
	assert.False(t, c.IsUnknown())

	_, offsets := src.counts()
	assert.Equal(t, 3, offsets)
}

func TestStationRegistry_CorrectionErrorIsMissing(t *testing.T) {
	src := newFakeTideSource()
	src.err = errors.New("timeout")
	r := newTestRegistry(src)

	assert.True(t, r.CorrectionMissing(context.Background(), 9447130))
}

func TestStationRegistry_StationsSorted(t *testing.T) {
	r := newTestRegistry(newFakeTideSource())

	stations := r.Stations()
	require.NotEmpty(t, stations)
	for i := 1; i < len(stations); i++ {
		assert.Less(t, stations[i-1].ID, stations[i].ID)
	}
}
