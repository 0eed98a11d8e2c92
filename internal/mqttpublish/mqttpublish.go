// Package mqttpublish publishes decoded SRC results to an MQTT broker as
// JSON, following the connect-options-and-publish idiom this codebase's
// ancestry uses for its own metrics publisher.
package mqttpublish

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cwsl/srcclock/internal/calendar"
	"github.com/cwsl/srcclock/internal/frame"
)

// Publisher holds an MQTT client and the topic decoded results are sent to.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// Result is the JSON payload published for each decode outcome.
type Result struct {
	Timestamp  int64  `json:"timestamp"`
	ISO8601    string `json:"iso8601"`
	ErrorCode  int    `json:"error_code"`
	DST        bool   `json:"dst"`
	ChangeTime int    `json:"change_time"`
	LeapSecond int    `json:"leap_second"`
	FrameText  string `json:"frame,omitempty"`
}

func generateClientID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "srcclock_" + hex.EncodeToString(b)
}

// Connect dials broker and returns a Publisher that sends to topic.
// clientID is generated randomly if empty.
func Connect(broker, clientID, topic string) (*Publisher, error) {
	if clientID == "" {
		clientID = generateClientID()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqttpublish: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttpublish: connect to %s: %w", broker, token.Error())
	}

	return &Publisher{client: client, topic: topic}, nil
}

// Publish sends one decode outcome as JSON. A publish failure is logged and
// returned but never panics - a broker outage should not take the decoder
// down with it.
func (p *Publisher) Publish(t calendar.Time, code frame.ErrorCode, frameText string) error {
	payload, err := json.Marshal(Result{
		Timestamp:  time.Now().Unix(),
		ISO8601:    t.ISO8601(0),
		ErrorCode:  int(code),
		DST:        t.DST,
		ChangeTime: t.ChangeTime,
		LeapSecond: t.LeapSecond,
		FrameText:  frameText,
	})
	if err != nil {
		return fmt.Errorf("mqttpublish: marshal result: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("mqttpublish: publish failed: %v", err)
		return err
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
