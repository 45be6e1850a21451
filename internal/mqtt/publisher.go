// Package mqtt publishes the tracker's position fixes to an MQTT
// broker: a retained JSON fix on <topic>, and the raw NMEA sentences
// on <topic>/nmea for text consumers.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Fix is the JSON payload published after each accepted report cycle.
type Fix struct {
	Time       string  `json:"time"`
	LatDeg     float64 `json:"lat_deg"`
	LonDeg     float64 `json:"lon_deg"`
	AccuracyM  int     `json:"accuracy_m"`
	Locator    string  `json:"locator"`
	Knots      int     `json:"knots"`
	BearingDeg int     `json:"bearing_deg"`
}

// pubClient is the slice of paho.Client the publisher uses; tests
// substitute a fake.
type pubClient interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	client pubClient
	topic  string
}

// Connect dials the broker and returns a ready publisher.
func Connect(broker, clientID, topic string) (*Publisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)
	client := paho.NewClient(opts)
	return connect(client, broker, topic)
}

func connect(client pubClient, broker, topic string) (*Publisher, error) {
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %v", broker, token.Error())
	}
	return &Publisher{client: client, topic: topic}, nil
}

// PublishFix publishes a retained fix so late subscribers see the last
// known position immediately.
func (p *Publisher) PublishFix(fix Fix) error {
	payload, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.topic, 0, true, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %v", p.topic, err)
	}
	return nil
}

// PublishNMEA publishes one cycle's sentences as a single text message.
func (p *Publisher) PublishNMEA(sentences []string) error {
	if len(sentences) == 0 {
		return nil
	}
	token := p.client.Publish(p.topic+"/nmea", 0, false, strings.Join(sentences, ""))
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s/nmea: %v", p.topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
