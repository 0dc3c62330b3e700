package usecase

import (
	"math"
	"sort"

	"github.com/vitos/signal_level_engine/internal/domain"
)

// CycleStats aggregates completed cycles.
type CycleStats struct {
	Count            int
	Wins             int
	WinRatePcnt      float64
	TotalPnL         float64
	AveragePnL       float64
	BestPnL          float64
	WorstPnL         float64
	AverageCycleMin  float64
	AverageAdverse   float64
	AverageFavorable float64
}

// AnalysisReport summarizes a set of completed cycles, overall and per side.
type AnalysisReport struct {
	Overall CycleStats
	Buy     CycleStats
	Sell    CycleStats
}

func buildStats(cycles []*domain.CycleRecord) CycleStats {
	stats := CycleStats{Count: len(cycles)}
	if len(cycles) == 0 {
		return stats
	}

	stats.BestPnL = cycles[0].PnL
	stats.WorstPnL = cycles[0].PnL
	var totalMin, totalAdverse, totalFavorable float64
	for _, c := range cycles {
		stats.TotalPnL += c.PnL
		if c.PnL > 0 {
			stats.Wins++
		}
		if c.PnL > stats.BestPnL {
			stats.BestPnL = c.PnL
		}
		if c.PnL < stats.WorstPnL {
			stats.WorstPnL = c.PnL
		}
		totalMin += c.CycleTimeMin
		totalAdverse += c.MaxAdverseExcursion
		totalFavorable += c.MaxFavorableExcursion
	}

	n := float64(len(cycles))
	stats.WinRatePcnt = 100 * float64(stats.Wins) / n
	stats.AveragePnL = stats.TotalPnL / n
	stats.AverageCycleMin = totalMin / n
	stats.AverageAdverse = totalAdverse / n
	stats.AverageFavorable = totalFavorable / n
	return stats
}

// AnalyzeCycles builds the report for a set of completed cycles.
func AnalyzeCycles(cycles []*domain.CycleRecord) AnalysisReport {
	var buys, sells []*domain.CycleRecord
	for _, c := range cycles {
		if c.Side == domain.SideSell {
			sells = append(sells, c)
		} else {
			buys = append(buys, c)
		}
	}
	return AnalysisReport{
		Overall: buildStats(cycles),
		Buy:     buildStats(buys),
		Sell:    buildStats(sells),
	}
}

// TopCycles returns up to n cycles ordered by absolute PnL, largest first.
func TopCycles(cycles []*domain.CycleRecord, n int) []*domain.CycleRecord {
	sorted := make([]*domain.CycleRecord, len(cycles))
	copy(sorted, cycles)
	sort.Slice(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].PnL) > math.Abs(sorted[j].PnL)
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
