package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/skyfleet/skyfleet/app"
	"github.com/skyfleet/skyfleet/config"
	"github.com/skyfleet/skyfleet/core/dispatch"
	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/factory"
	"github.com/skyfleet/skyfleet/core/model"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// junitReport is a minimal representation of a JUnit XML report so CI
// systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an InfluxDB 2.7 container initialised with the e2e
// org, bucket and token.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

// startMosquitto spins up a Mosquitto broker accepting anonymous clients.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// Test_E2E_DeliveryFlow runs the whole service against real InfluxDB and
// Mosquitto instances: a delivery submitted over HTTP must complete, be
// announced on the broker and be recorded in Influx.
func Test_E2E_DeliveryFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	mqttCont, mqttURL := startMosquitto(ctx, t)
	defer mqttCont.Terminate(ctx) //nolint:errcheck
	t.Logf("InfluxDB started at %s", influxURL)
	t.Logf("Mosquitto started at %s", mqttURL)

	statuses := make(chan events.DeliveryStatus, 8)
	obs := paho.NewClient(paho.NewClientOptions().AddBroker(mqttURL).SetClientID("e2e-observer"))
	if tok := obs.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("observer connect: %v", tok.Error())
	}
	defer obs.Disconnect(250)
	if tok := obs.Subscribe("skyfleet/delivery-status", 1, func(_ paho.Client, m paho.Message) {
		var d events.DeliveryStatus
		if err := json.Unmarshal(m.Payload(), &d); err == nil {
			statuses <- d
		}
	}); tok.Wait() && tok.Error() != nil {
		t.Fatalf("observer subscribe: %v", tok.Error())
	}

	cfg := config.Default()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Engine.TickMS = 5
	cfg.Engine.SettleMS = 5
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker = mqttURL
	cfg.Metrics.Sinks = []factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": influxURL, "token": influxToken, "org": influxOrg, "bucket": influxBucket},
	}}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("config: %v", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Run(runCtx) }()

	body, _ := json.Marshal(model.DeliveryRequest{Longitude: -3.187, Latitude: 55.945, Capacity: 2})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submitDelivery", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)
	var res dispatch.SubmissionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || !res.Accepted {
		t.Fatalf("submission rejected: %d %s", rec.Code, rec.Body.String())
	}

	timeout := time.After(30 * time.Second)
	for completed := false; !completed; {
		select {
		case d := <-statuses:
			completed = d.DeliveryID == res.DeliveryID && d.Status == model.StatusCompleted
		case <-timeout:
			t.Fatalf("no completion for delivery %d on the broker", res.DeliveryID)
		}
	}

	cli := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer cli.Close()
	// the delivery status point is written by the event collector, asynchronously
	deadline := time.Now().Add(15 * time.Second)
	for _, m := range []string{"mission_event", "submission_event", "delivery_status"} {
		for {
			n, err := cli.CountRecords(ctx, m, "", "")
			if err == nil && n > 0 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("no %s points in Influx (err=%v)", m, err)
			}
			time.Sleep(200 * time.Millisecond)
		}
	}
	n, err := cli.CountRecords(ctx, "mission_event", "status", string(model.StatusCompleted))
	if err != nil || n == 0 {
		t.Fatalf("completed mission not recorded: n=%d err=%v", n, err)
	}

	stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{Name: t.Name(), Time: time.Since(started).Seconds()}}}
	if err := writeJUnit(filepath.Join(t.TempDir(), "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
