package resource

// Azure Monitor platform metric names for virtual machines.
const (
	MetricCPU        = "Percentage CPU"
	MetricNetworkIn  = "Network In Total"
	MetricNetworkOut = "Network Out Total"
	MetricDiskRead   = "Disk Read Bytes"
	MetricDiskWrite  = "Disk Write Bytes"
)

// MetricQuery selects metrics for one resource.
type MetricQuery struct {
	Timespan     string // ISO 8601 duration, e.g. PT1H
	Interval     string // ISO 8601 grain, e.g. PT5M
	Names        []string
	Aggregations []string
}

// MetricSeries maps a metric name to its first timeseries.
type MetricSeries map[string][]MetricPoint

// Latest returns the newest average of the named metric, or nil.
func (s MetricSeries) Latest(name string) *float64 {
	points := s[name]
	if len(points) == 0 {
		return nil
	}
	return points[len(points)-1].Average
}
