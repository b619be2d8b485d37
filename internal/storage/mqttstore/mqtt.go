// Package mqttstore implements the MQTT archive storage backend: every
// archive record is published as a JSON document, observation by observation
// and as one combined payload, for downstream consumers such as weather
// dashboards.
package mqttstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/precipmeter/precipd/internal/log"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/pkg/config"
)

const (
	reconnectInterval = 2 * time.Second
	publishTimeout    = 5 * time.Second
	defaultTopic      = "precipd"
)

// Storage holds the connection to the MQTT broker.
type Storage struct {
	client      mqtt.Client
	topicPrefix string
}

// New sets up a new MQTT storage backend. The client reconnects by itself;
// records published while the broker is away are dropped.
func New(cfgData *config.ConfigData) (*Storage, error) {
	mc := cfgData.Storage.MQTT
	if mc.Broker == "" {
		return nil, fmt.Errorf("MQTT storage needs a broker URL")
	}

	clientID := mc.ClientID
	if clientID == "" {
		clientID = "precipd-" + uuid.NewString()[:8]
	}
	topicPrefix := mc.TopicPrefix
	if topicPrefix == "" {
		topicPrefix = defaultTopic
	}

	opts := mqtt.NewClientOptions().
		AddBroker(mc.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(reconnectInterval).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectInterval)
	if mc.Username != "" {
		opts.SetUsername(mc.Username)
		opts.SetPassword(mc.Password)
	}
	opts.OnConnect = func(client mqtt.Client) {
		or := client.OptionsReader()
		log.Infof("connected to MQTT broker %v as %s", or.Servers(), or.ClientID())
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warnf("connection to MQTT broker lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		// With connect-retry enabled the client keeps trying in the
		// background, so a failed first connect is not fatal.
		log.Warnf("initial MQTT connect failed, retrying in background: %v", token.Error())
	}

	return &Storage{client: client, topicPrefix: topicPrefix}, nil
}

// StartStorageEngine creates a goroutine loop to receive archive records and
// publish them to the broker.
func (m *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.ArchiveRecord {
	log.Info("starting MQTT storage engine...")
	recordChan := make(chan types.ArchiveRecord, 10)
	go m.processRecords(ctx, wg, recordChan)
	return recordChan
}

func (m *Storage) processRecords(ctx context.Context, wg *sync.WaitGroup, rchan <-chan types.ArchiveRecord) {
	wg.Add(1)
	defer wg.Done()
	defer m.client.Disconnect(250)

	for {
		select {
		case r := <-rchan:
			if err := m.PublishRecord(r); err != nil {
				log.Error("could not publish archive record:", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received. Cancelling record processor.")
			return
		}
	}
}

// recordPayload is the JSON shape of the combined record topic.
type recordPayload struct {
	DateTime     int64                  `json:"dateTime"`
	Interval     int                    `json:"interval"`
	Observations map[string]interface{} `json:"observations"`
}

// PublishRecord publishes one archive record: the full record on
// <prefix>/loop and each observation on its own <prefix>/<name> topic.
func (m *Storage) PublishRecord(r types.ArchiveRecord) error {
	payload := recordPayload{
		DateTime:     r.DateTime.Unix(),
		Interval:     r.Interval,
		Observations: make(map[string]interface{}, len(r.Observations)),
	}
	for name, obs := range r.Observations {
		if obs.IsText {
			payload.Observations[name] = obs.Text
		} else {
			payload.Observations[name] = obs.Value
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topicPrefix+"/loop", 0, true, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s/loop timed out", m.topicPrefix)
	}
	if err := token.Error(); err != nil {
		return err
	}

	for name, v := range payload.Observations {
		body, err := json.Marshal(v)
		if err != nil {
			continue
		}
		m.client.Publish(fmt.Sprintf("%s/%s", m.topicPrefix, name), 0, true, body)
	}
	return nil
}
