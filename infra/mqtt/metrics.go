package mqtt

import "github.com/prometheus/client_golang/prometheus"

var (
	publishSuccess *prometheus.CounterVec
	publishFailure *prometheus.CounterVec
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec) {
	suc := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_publish_success_total",
			Help: "Number of successful MQTT publish operations",
		},
		[]string{"topic"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_publish_failure_total",
			Help: "Number of failed MQTT publish operations",
		},
		[]string{"topic"},
	)
	return suc, fail
}

func init() {
	publishSuccess, publishFailure = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers the publisher metrics on reg, or on the
// default registerer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(publishSuccess, publishFailure)
}
