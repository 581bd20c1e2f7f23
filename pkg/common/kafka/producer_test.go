package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageKeysByExperiment(t *testing.T) {
	event := models.Event{
		ID:        "evt-1",
		Type:      models.EventExperimentRun,
		Source:    "bodytwin-training",
		Data:      map[string]interface{}{"experiment": "bodytwin_alert_models", "run_name": "rf"},
		Timestamp: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}

	msg, err := newMessage(event)
	require.NoError(t, err)
	assert.Equal(t, "bodytwin_alert_models", string(msg.Key))
	assert.Equal(t, event.Timestamp, msg.Time)
	assert.Equal(t, "experiment.run", string(msg.Headers[0].Value))

	var decoded models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "evt-1", decoded.ID)
	assert.Equal(t, "rf", decoded.Data["run_name"])
}

func TestNewMessageFallsBackToEventID(t *testing.T) {
	msg, err := newMessage(models.Event{ID: "evt-2", Type: models.EventRetrainFood})
	require.NoError(t, err)
	assert.Equal(t, "evt-2", string(msg.Key))
}
