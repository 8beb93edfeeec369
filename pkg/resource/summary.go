package resource

import "github.com/shopspring/decimal"

// SummaryStats aggregates a VM inventory.
type SummaryStats struct {
	TotalRunning int      `json:"totalRunning"`
	TotalStopped int      `json:"totalStopped"`
	AvgCPU       *float64 `json:"avgCpu"`
}

// Summarize counts running and not-running VMs and averages CPU over the VMs
// that reported a value. AvgCPU stays nil when none did: no data is not the
// same as zero load.
func Summarize(items []VMSummary) SummaryStats {
	var (
		stats  SummaryStats
		cpuSum float64
		cpuN   int
	)

	for _, it := range items {
		if IsRunning(it.PowerState) {
			stats.TotalRunning++
		} else {
			stats.TotalStopped++
		}
		if it.CPUPercent != nil {
			cpuSum += *it.CPUPercent
			cpuN++
		}
	}

	if cpuN > 0 {
		avg := Round(cpuSum/float64(cpuN), 1)
		stats.AvgCPU = &avg
	}

	return stats
}

// Round rounds v half away from zero to the given number of decimal places.
// Rounding happens in decimal so 2.675 becomes 2.68, not 2.67.
func Round(v float64, places int) float64 {
	r, _ := decimal.NewFromFloat(v).Round(int32(places)).Float64()
	return r
}
