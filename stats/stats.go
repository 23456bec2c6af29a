// Package stats counts the elements that leave each pipeline stage.
package stats

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/omniscale/osmpipe/element"
)

var ElementsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "osmpipe_stage_elements_total",
		Help: "Number of elements emitted by a pipeline stage",
	},
	[]string{"position", "stage", "kind"},
)

// ElementCount holds the number of nodes, ways and relations.
type ElementCount struct {
	Nodes     int64
	Ways      int64
	Relations int64
}

func (c ElementCount) Total() int64 {
	return c.Nodes + c.Ways + c.Relations
}

func (c ElementCount) String() string {
	return fmt.Sprintf("nodes: %d ways: %d relations: %d", c.Nodes, c.Ways, c.Relations)
}

func (c *ElementCount) add(kind element.Kind) {
	switch kind {
	case element.Point:
		c.Nodes += 1
	case element.Way:
		c.Ways += 1
	case element.Relation:
		c.Relations += 1
	}
}

// Counters records the elements each stage of a single pipeline run has
// emitted. Counts are kept locally for the run summary and are also exported
// to ElementsTotal.
type Counters struct {
	mu     sync.Mutex
	names  []string
	counts []ElementCount
	vec    *prometheus.CounterVec
}

func NewCounters(stages []string) *Counters {
	return &Counters{
		names:  stages,
		counts: make([]ElementCount, len(stages)),
		vec:    ElementsTotal,
	}
}

// Add counts one element of kind leaving the stage at position.
func (c *Counters) Add(position int, kind element.Kind) {
	c.mu.Lock()
	c.counts[position].add(kind)
	c.mu.Unlock()
	if c.vec != nil {
		c.vec.WithLabelValues(strconv.Itoa(position), c.names[position], kind.String()).Inc()
	}
}

// Count returns the elements emitted so far by the stage at position.
func (c *Counters) Count(position int) ElementCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[position]
}

// Summary returns one line per stage, e.g. "bbox: nodes: 2 ways: 1 relations: 1".
func (c *Counters) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]string, 0, len(c.names))
	for i, name := range c.names {
		lines = append(lines, name+": "+c.counts[i].String())
	}
	return strings.Join(lines, "\n")
}
