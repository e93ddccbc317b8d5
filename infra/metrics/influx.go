package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/skyfleet/skyfleet/core/metrics"
	"github.com/skyfleet/skyfleet/infra/logger"
)

// InfluxSink writes mission events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordMission writes the terminal state of a mission.
func (s *InfluxSink) RecordMission(ev coremetrics.MissionEvent) error {
	p := write.NewPointWithMeasurement("mission_event").
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("status", ev.Status.String()).
		AddTag("delivery_id", strconv.FormatInt(ev.DeliveryID, 10))
	if ev.BatchID != "" {
		p = p.AddTag("batch_id", ev.BatchID)
	}
	p = p.AddField("steps", ev.Steps).
		AddField("duration_s", round3(ev.Duration.Seconds()))
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordSubmission writes the synchronous result of a submission.
func (s *InfluxSink) RecordSubmission(ev coremetrics.SubmissionEvent) error {
	p := write.NewPointWithMeasurement("submission_event").
		AddTag("kind", ev.Kind).
		AddTag("accepted", strconv.FormatBool(ev.Accepted))
	if ev.BatchID != "" {
		p = p.AddTag("batch_id", ev.BatchID)
	}
	p = p.AddField("deliveries", ev.Deliveries).
		AddField("skipped", ev.Skipped).
		AddField("vehicles", strings.Join(ev.VehicleIDs, ","))
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordFleetState writes an occupancy snapshot.
func (s *InfluxSink) RecordFleetState(ev coremetrics.FleetStateEvent) error {
	p := write.NewPointWithMeasurement("fleet_state").
		AddField("active", ev.Active).
		AddField("available", ev.Available).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordDeliveryStatus writes a delivery notification.
func (s *InfluxSink) RecordDeliveryStatus(ev coremetrics.DeliveryStatusEvent) error {
	p := write.NewPointWithMeasurement("delivery_status").
		AddTag("status", ev.Status.String()).
		AddTag("scope", deliveryScope(ev)).
		AddTag("vehicle_id", ev.VehicleID).
		AddField("delivery_id", ev.DeliveryID).
		AddField("message", ev.Message).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// Close flushes and releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
