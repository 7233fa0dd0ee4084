package mesh

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// PoseMessage is published per scanner after every alignment
type PoseMessage struct {
	ScannerID string      `json:"scannerId"`
	Index     int         `json:"index"`
	Mapping   AxisMapping `json:"mapping"`
	Origin    Vec3        `json:"origin"`
	RunID     string      `json:"runId"`
	Timestamp int64       `json:"timestamp"`
}

// SummaryMessage is the retained alignment summary
type SummaryMessage struct {
	RunID        string `json:"runId"`
	Reference    int    `json:"reference"`
	Scanners     int    `json:"scanners"`
	Beacons      int    `json:"beacons"`
	MaxManhattan int64  `json:"maxManhattan"`
	Timestamp    int64  `json:"timestamp"`
}

// Publisher publishes alignment results to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	poses         map[string]*PoseMessage
	mu            sync.RWMutex
}

// NewPublisher creates a new alignment publisher. The topic prefix comes from
// MQTT_PUBLISH_PREFIX, then prefix, then "beaconmesh".
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	return &Publisher{
		client:        client,
		publishPrefix: envOr("MQTT_PUBLISH_PREFIX", orDefault(prefix, defaultPublishPrefix)),
		qos:           0,
		retain:        true,
		poses:         make(map[string]*PoseMessage),
	}
}

// Prefix returns the topic prefix in use
func (p *Publisher) Prefix() string {
	return p.publishPrefix
}

// PublishAlignment publishes every scanner's pose to {prefix}/scanners/{id}
// followed by the summary on {prefix}/summary. names labels scanner indices;
// unnamed scanners are published under their index.
func (p *Publisher) PublishAlignment(a *Alignment, names []string) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	now := time.Now().Unix()
	for k, pose := range a.Poses {
		id := fmt.Sprintf("%d", k)
		if k < len(names) && names[k] != "" {
			id = names[k]
		}
		msg := &PoseMessage{
			ScannerID: id,
			Index:     k,
			Mapping:   pose.Mapping,
			Origin:    pose.Origin,
			RunID:     a.RunID,
			Timestamp: now,
		}

		p.mu.Lock()
		p.poses[id] = msg
		p.mu.Unlock()

		if err := p.publishJSON(fmt.Sprintf("%s/scanners/%s", p.publishPrefix, id), msg); err != nil {
			return err
		}
	}

	summary := SummaryMessage{
		RunID:        a.RunID,
		Reference:    a.Reference,
		Scanners:     a.Scanners(),
		Beacons:      a.UniqueBeacons(),
		MaxManhattan: a.MaxManhattan,
		Timestamp:    now,
	}
	if err := p.publishJSON(p.publishPrefix+"/summary", summary); err != nil {
		return err
	}

	log.Info().
		Str("component", "publisher").
		Str("run", a.RunID).
		Int("scanners", len(a.Poses)).
		Msg("published alignment")
	return nil
}

func (p *Publisher) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// GetPose returns the last published pose for a scanner
func (p *Publisher) GetPose(scannerID string) (*PoseMessage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	msg, ok := p.poses[scannerID]
	if !ok {
		return nil, false
	}
	out := *msg
	return &out, true
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
