package pipeline

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/nwstraits/survey-etl/internal/domain"
)

// CountyGroup is the surveys of one county ordered by location then date.
type CountyGroup struct {
	County  string
	Surveys []domain.Survey
}

// Collector keeps every loaded survey in memory for the end-of-run outputs.
// It implements BatchLoader; a survey loaded twice is kept once.
type Collector struct {
	mu      sync.Mutex
	surveys []domain.Survey
	seen    map[string]bool
}

func NewCollector() *Collector {
	return &Collector{seen: make(map[string]bool)}
}

func (c *Collector) LoadBatch(_ context.Context, surveys []domain.Survey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range surveys {
		key := s.ID()
		if key == "" {
			key = s.FilePrefix()
		}
		if c.seen[key] {
			continue
		}
		c.seen[key] = true
		c.surveys = append(c.surveys, s)
	}
	return nil
}

// Len returns the number of surveys collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.surveys)
}

// ByCounty groups the surveys by county, counties in name order.
func (c *Collector) ByCounty() []CountyGroup {
	c.mu.Lock()
	index := make(map[string]int)
	var groups []CountyGroup
	for _, s := range c.surveys {
		i, ok := index[s.County()]
		if !ok {
			i = len(groups)
			index[s.County()] = i
			groups = append(groups, CountyGroup{County: s.County()})
		}
		groups[i].Surveys = append(groups[i].Surveys, s)
	}
	c.mu.Unlock()

	slices.SortFunc(groups, func(a, b CountyGroup) int { return cmp.Compare(a.County, b.County) })
	for _, g := range groups {
		slices.SortStableFunc(g.Surveys, func(a, b domain.Survey) int {
			if n := cmp.Compare(a.Location(), b.Location()); n != 0 {
				return n
			}
			return a.Date().Compare(b.Date())
		})
	}
	return groups
}

// Counties returns the county names in order.
func (c *Collector) Counties() []string {
	groups := c.ByCounty()
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.County
	}
	return out
}

// GISRows returns the GIS rows of the kelp surveys in ByCounty order.
func (c *Collector) GISRows() []*domain.GISRow {
	var rows []*domain.GISRow
	for _, g := range c.ByCounty() {
		for _, s := range g.Surveys {
			if k, ok := s.(*domain.KelpSurvey); ok && k.GIS != nil {
				rows = append(rows, k.GIS)
			}
		}
	}
	return rows
}

// MultiLoader loads each batch into every loader in order.
type MultiLoader []BatchLoader

func (m MultiLoader) LoadBatch(ctx context.Context, surveys []domain.Survey) error {
	for _, l := range m {
		if err := l.LoadBatch(ctx, surveys); err != nil {
			return err
		}
	}
	return nil
}
