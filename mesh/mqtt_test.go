package mesh

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// reportRecorder is a testify mock standing in for a MessageHandler
type reportRecorder struct {
	mock.Mock
}

func (r *reportRecorder) handle(scannerID string, cloud PointCloud, err error) {
	r.Called(scannerID, cloud, err)
}

func twoScannerConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{Broker: "tcp://localhost:1883"},
		Scanners: []ScannerConfig{
			{ID: "north", Topic: "scanners/north/report"},
			{ID: "south", Topic: "scanners/south/report"},
		},
	}
}

func TestInitMQTT_Disabled(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	config := &Config{
		Scanners: []ScannerConfig{{ID: "test", Topic: "test/topic"}},
	}

	client, err := InitMQTT(config, func(string, PointCloud, error) {})
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestInitMQTT_NoScanners(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	config := &Config{
		MQTT: MQTTConfig{Broker: "tcp://localhost:1883"},
	}

	_, err := InitMQTT(config, func(string, PointCloud, error) {})
	assert.Error(t, err)
}

func TestInitMQTT_ReturnsImmediately(t *testing.T) {
	// Nothing listens on this port; connecting happens in the background
	t.Setenv("MQTT_BROKER", "tcp://127.0.0.1:1")

	start := time.Now()
	client, err := InitMQTT(twoScannerConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, client.IsConnected())
	assert.NotNil(t, client.GetClient())
}

func TestMQTTClient_IsConnected(t *testing.T) {
	client := &MQTTClient{}
	assert.False(t, client.IsConnected(), "New client should not be connected")

	client.setConnected(true)
	assert.True(t, client.IsConnected(), "Client should be connected after setConnected(true)")

	client.setConnected(false)
	assert.False(t, client.IsConnected(), "Client should not be connected after setConnected(false)")
}

func TestMQTTClient_GetScannerByTopic(t *testing.T) {
	client := &MQTTClient{config: twoScannerConfig()}

	tests := []struct {
		name   string
		topic  string
		wantID string
		wantOK bool
	}{
		{"north topic", "scanners/north/report", "north", true},
		{"south topic", "scanners/south/report", "south", true},
		{"unknown topic", "scanners/east/report", "", false},
		{"empty topic", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := client.GetScannerByTopic(tt.topic)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestOnConnect_SubscribesScannerTopics(t *testing.T) {
	config := twoScannerConfig()
	config.Scanners = append(config.Scanners, ScannerConfig{ID: "api-only", ApiURL: strPtr("http://x/report")})

	mc := NewMockClient()
	mc.SetConnected(true)
	client := NewMQTTClientWithClient(mc, config, nil)

	client.onConnect(mc)

	assert.True(t, client.IsConnected())
	assert.ElementsMatch(t, []string{"scanners/north/report", "scanners/south/report"}, mc.Subscriptions())
}

func TestResubscribe(t *testing.T) {
	mc := NewMockClient()
	mc.SetConnected(true)
	client := NewMQTTClientWithClient(mc, twoScannerConfig(), nil)
	assert.Empty(t, mc.Subscriptions())

	client.Resubscribe()
	assert.Len(t, mc.Subscriptions(), 2)
}

func TestOnConnect_SubscribeErrorIsSkipped(t *testing.T) {
	mc := NewMockClient()
	mc.SetConnected(true)
	mc.SetSubscribeError(errors.New("denied"))
	client := NewMQTTClientWithClient(mc, twoScannerConfig(), nil)

	client.onConnect(mc)
	assert.Empty(t, mc.Subscriptions())
}

func TestMessageHandler_DecodesReports(t *testing.T) {
	rec := &reportRecorder{}
	rec.On("handle", "north", PointCloud{V3(1, 2, 3), V3(-4, 5, 6)}, nil).Once()
	rec.On("handle", "south", PointCloud(nil), mock.MatchedBy(func(err error) bool {
		return errors.Is(err, ErrMalformedInput)
	})).Once()

	mc := NewMockClient()
	mc.SetConnected(true)
	client := NewMQTTClientWithClient(mc, twoScannerConfig(), rec.handle)
	client.onConnect(mc)

	mc.SimulateMessage("scanners/north/report", []byte(`{"beacons":[[1,2,3],[-4,5,6]]}`))
	mc.SimulateMessage("scanners/south/report", []byte("not,a,beacon"))
	mc.SimulateMessage("scanners/unknown", []byte("1,2,3"))

	rec.AssertExpectations(t)
}

func TestMessageHandler_NilHandler(t *testing.T) {
	mc := NewMockClient()
	mc.SetConnected(true)
	client := NewMQTTClientWithClient(mc, twoScannerConfig(), nil)
	client.onConnect(mc)

	assert.NotPanics(t, func() {
		mc.SimulateMessage("scanners/north/report", []byte("1,2,3"))
	})
}

func TestMQTTClient_OnConnectionLost(t *testing.T) {
	mc := NewMockClient()
	client := NewMQTTClientWithClient(mc, twoScannerConfig(), nil)
	client.setConnected(true)

	client.onConnectionLost(mc, errors.New("broker gone"))
	assert.False(t, client.IsConnected())
}

func TestMQTTDisconnect(t *testing.T) {
	mc := NewMockClient()
	mc.SetConnected(true)
	client := NewMQTTClientWithClient(mc, twoScannerConfig(), nil)
	client.setConnected(true)

	client.Disconnect()
	assert.False(t, client.IsConnected())
	assert.False(t, mc.IsConnected())

	// Disconnecting twice is harmless
	client.Disconnect()
}

func TestMQTTClient_ConcurrentAccess(t *testing.T) {
	client := &MQTTClient{config: twoScannerConfig()}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			client.setConnected(i%2 == 0)
		}(i)
		go func() {
			defer wg.Done()
			client.IsConnected()
			client.GetScannerByTopic("scanners/north/report")
		}()
	}
	wg.Wait()
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "x", orDefault("x", "y"))
	assert.Equal(t, "y", orDefault("", "y"))
}
