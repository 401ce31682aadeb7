package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/models"
)

const mqttTimeout = 5 * time.Second

// ConnectMQTT connects a client to broker.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return client, nil
}

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes each vehicle's telemetry to <topic>/<vehicle_id> and
// finished trips to <topic>/trips.
type MQTTSink struct {
	client mqttPublisher
	topic  string
}

// NewMQTTSink publishes below topic through client.
func NewMQTTSink(client mqttPublisher, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic}
}

// Publish sends frame. Vehicle positions are retained so late subscribers see
// the latest one.
func (s *MQTTSink) Publish(_ context.Context, frame models.Frame) error {
	var tokens []mqtt.Token
	for _, t := range frame.Vehicles {
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("mqtt sink: marshal %s: %w", t.VehicleID, err)
		}
		tokens = append(tokens, s.client.Publish(s.topic+"/"+t.VehicleID, 0, true, payload))
	}
	for _, trip := range frame.Trips {
		payload, err := json.Marshal(trip)
		if err != nil {
			return fmt.Errorf("mqtt sink: marshal trip: %w", err)
		}
		tokens = append(tokens, s.client.Publish(s.topic+"/trips", 1, false, payload))
	}

	var errs []error
	for _, token := range tokens {
		if !token.WaitTimeout(mqttTimeout) {
			errs = append(errs, errors.New("mqtt sink: publish timed out"))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("mqtt sink: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close disconnects from the broker.
func (s *MQTTSink) Close(context.Context) error {
	s.client.Disconnect(250)
	return nil
}
