// Package metrics defines the sinks recording mission outcomes, submissions
// and fleet occupancy. Sinks like PromSink and InfluxSink live in infra/metrics
// and can be combined with NewMultiSink; NewMetricsSink returns a MultiSink
// automatically when several sinks are configured.
package metrics
