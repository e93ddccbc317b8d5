package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/skyfleet/skyfleet/core/events"
	coremon "github.com/skyfleet/skyfleet/core/monitoring"
)

// PublishVehicleUpdate publishes u on <prefix>/vehicle-updates/<droneId>.
func (p *PahoClient) PublishVehicleUpdate(u events.VehicleUpdate) {
	p.publishJSON(events.TopicVehicleUpdates, p.cfg.Topic(events.TopicVehicleUpdates+"/"+u.VehicleID), u)
}

// PublishSystemState publishes s on <prefix>/system-state.
func (p *PahoClient) PublishSystemState(s events.SystemState) {
	p.publishJSON(events.TopicSystemState, p.cfg.Topic(events.TopicSystemState), s)
}

// PublishDeliveryStatus publishes d on <prefix>/delivery-status.
func (p *PahoClient) PublishDeliveryStatus(d events.DeliveryStatus) {
	p.publishJSON(events.TopicDeliveryStatus, p.cfg.Topic(events.TopicDeliveryStatus), d)
}

func (p *PahoClient) publishJSON(name, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Errorf("encode %s: %v", name, err)
		return
	}
	if err := p.publish(name, topic, payload); err != nil {
		publishFailure.WithLabelValues(name).Inc()
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
		return
	}
	publishSuccess.WithLabelValues(name).Inc()
}

// publish sends payload with exponential backoff between attempts.
func (p *PahoClient) publish(name, topic string, payload []byte) error {
	qos := p.qos(name)
	retain := p.cfg.Retain[name]
	var err error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retain, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			p.logger.Debugf("published %s", topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d on %s failed: %v", attempt+1, topic, err)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, err)
}

// SetCancelHandler installs the callback invoked for cancellation commands.
func (p *PahoClient) SetCancelHandler(fn func(vehicleID string) bool) {
	p.mu.Lock()
	p.onCancel = fn
	p.mu.Unlock()
}

func (p *PahoClient) onCommand(_ paho.Client, msg paho.Message) {
	var m struct {
		VehicleID string `json:"droneId"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil || m.VehicleID == "" {
		p.logger.Errorf("invalid cancel command: %s", string(msg.Payload()))
		return
	}
	p.mu.RLock()
	fn := p.onCancel
	p.mu.RUnlock()
	if fn == nil {
		p.logger.Warnf("cancel command for %s ignored: no handler", m.VehicleID)
		return
	}
	if fn(m.VehicleID) {
		p.logger.Infof("cancelled mission of %s via mqtt", m.VehicleID)
	} else {
		p.logger.Infof("cancel command for %s: no active mission", m.VehicleID)
	}
}
