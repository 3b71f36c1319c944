package index

import (
	"math"

	"github.com/fyrsmithlabs/fieldmem/internal/coordinate"
	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

// AxisSpread summarizes the distribution of one coordinate axis.
type AxisSpread struct {
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	TotalPatterns    int                      `json:"total_patterns" yaml:"total_patterns"`
	CategoryCounts   map[pattern.Category]int `json:"category_counts" yaml:"category_counts"`
	AverageStrength  float64                  `json:"average_strength" yaml:"average_strength"`
	CoordinateSpread []AxisSpread             `json:"coordinate_spread" yaml:"coordinate_spread"`
}

// Stats computes store statistics under the read lock. An empty store
// yields zero values, never an error.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	st := Stats{
		TotalPatterns:    len(ix.patterns),
		CategoryCounts:   make(map[pattern.Category]int),
		CoordinateSpread: make([]AxisSpread, coordinate.Dimensions),
	}
	if len(ix.patterns) == 0 {
		return st
	}

	sums := make([]float64, coordinate.Dimensions)
	sqSums := make([]float64, coordinate.Dimensions)
	for axis := range st.CoordinateSpread {
		st.CoordinateSpread[axis].Min = math.Inf(1)
		st.CoordinateSpread[axis].Max = math.Inf(-1)
	}

	var strengthSum float64
	for _, m := range ix.patterns {
		st.CategoryCounts[m.Harmonics.Category]++
		strengthSum += m.Harmonics.Strength
		for axis := 0; axis < coordinate.Dimensions && axis < len(m.Coordinates); axis++ {
			v := m.Coordinates[axis]
			sums[axis] += v
			sqSums[axis] += v * v
			if v < st.CoordinateSpread[axis].Min {
				st.CoordinateSpread[axis].Min = v
			}
			if v > st.CoordinateSpread[axis].Max {
				st.CoordinateSpread[axis].Max = v
			}
		}
	}

	n := float64(len(ix.patterns))
	st.AverageStrength = strengthSum / n
	for axis := range st.CoordinateSpread {
		mean := sums[axis] / n
		st.CoordinateSpread[axis].Mean = mean
		variance := sqSums[axis]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		st.CoordinateSpread[axis].StdDev = math.Sqrt(variance)
	}
	return st
}
