package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/traffic-sim/internal/db"
	"github.com/ukydev/traffic-sim/internal/models"
)

func testFrame(tick int64) models.Frame {
	return models.Frame{
		RunID: "run",
		Tick:  tick,
		Vehicles: []models.Telemetry{
			{VehicleID: "a", State: "moving", Tick: tick},
			{VehicleID: "b", State: "parked_seeking_path", Tick: tick, StalledTicks: 3},
		},
		Trips: []models.Trip{{VehicleID: "a", Legs: 2, Distance: 40}},
	}
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Publish(ctx context.Context, frame models.Frame) error {
	return m.Called(ctx, frame).Error(0)
}

func (m *mockSink) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestFanout(t *testing.T) {
	ctx := context.Background()
	frame := testFrame(1)
	failing, working := &mockSink{}, &mockSink{}
	failing.On("Publish", ctx, frame).Return(errors.New("down"))
	working.On("Publish", ctx, frame).Return(nil)
	failing.On("Close", ctx).Return(nil)
	working.On("Close", ctx).Return(errors.New("already closed"))

	fan := Fanout{failing, working}
	assert.EqualError(t, fan.Publish(ctx, frame), "down")
	assert.EqualError(t, fan.Close(ctx), "already closed")
	failing.AssertExpectations(t)
	working.AssertExpectations(t)

	assert.NoError(t, Fanout{}.Publish(ctx, frame))
}

func TestLogSink(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	sink := LogSink{Every: 10}
	require.NoError(t, sink.Publish(context.Background(), testFrame(3)))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "Trip completed", hook.LastEntry().Message)

	hook.Reset()
	require.NoError(t, sink.Publish(context.Background(), testFrame(20)))
	require.Len(t, hook.AllEntries(), 2)
	summary := hook.LastEntry()
	assert.Equal(t, log.InfoLevel, summary.Level)
	assert.Equal(t, "Fleet status", summary.Message)
	assert.Equal(t, 2, summary.Data["vehicles"])
	assert.Equal(t, 1, summary.Data["stalled"])
	assert.Equal(t, map[string]int{"moving": 1, "parked_seeking_path": 1}, summary.Data["states"])
	assert.NoError(t, sink.Close(context.Background()))
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertTelemetryBatch(ctx context.Context, batch []models.Telemetry) error {
	return m.Called(ctx, batch).Error(0)
}

func (m *mockStore) InsertTrip(ctx context.Context, trip models.Trip) error {
	return m.Called(ctx, trip).Error(0)
}

func TestStoreSink(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	sink := &StoreSink{name: "test", telemetry: store, trips: store, every: 5}

	frame := testFrame(5)
	store.On("InsertTelemetryBatch", ctx, frame.Vehicles).Return(nil).Once()
	store.On("InsertTrip", ctx, frame.Trips[0]).Return(nil).Twice()
	require.NoError(t, sink.Publish(ctx, frame))

	// Off-cadence frames only carry trips.
	require.NoError(t, sink.Publish(ctx, testFrame(6)))
	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "InsertTelemetryBatch", 1)

	failing := &mockStore{}
	failing.On("InsertTelemetryBatch", ctx, mock.Anything).Return(errors.New("disk full"))
	failing.On("InsertTrip", ctx, mock.Anything).Return(nil)
	sink = &StoreSink{name: "test", telemetry: failing, trips: failing, every: 1}
	err := sink.Publish(ctx, testFrame(7))
	assert.ErrorContains(t, err, "test sink: tick 7 telemetry: disk full")
	assert.NoError(t, sink.Close(ctx))
}

func TestPostgresSinkWithoutDB(t *testing.T) {
	sink := NewPostgresSink(db.NewPostgresStore(nil), 1)
	assert.Error(t, sink.Publish(context.Background(), testFrame(1)))
	assert.NoError(t, sink.Close(context.Background()))
}

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	messages     []published
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTSink(t *testing.T) {
	client := &fakeClient{}
	sink := NewMQTTSink(client, "traffic/vehicles")

	require.NoError(t, sink.Publish(context.Background(), testFrame(1)))
	require.Len(t, client.messages, 3)
	assert.Equal(t, "traffic/vehicles/a", client.messages[0].topic)
	assert.True(t, client.messages[0].retained)
	assert.Equal(t, "traffic/vehicles/b", client.messages[1].topic)
	assert.Equal(t, "traffic/vehicles/trips", client.messages[2].topic)
	assert.Equal(t, byte(1), client.messages[2].qos)

	var tele models.Telemetry
	require.NoError(t, json.Unmarshal(client.messages[1].payload, &tele))
	assert.Equal(t, "parked_seeking_path", tele.State)
	assert.Equal(t, 3, tele.StalledTicks)

	client.err = errors.New("not connected")
	assert.ErrorContains(t, sink.Publish(context.Background(), testFrame(2)), "not connected")

	require.NoError(t, sink.Close(context.Background()))
	assert.True(t, client.disconnected)
}
