package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	b, err := encode("7", map[string]any{"firm_id": 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"firm_id":7}`, string(b))

	_, err = encode("7", make(chan int))
	assert.ErrorContains(t, err, "encode message 7")
}

func TestNewPublisherTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "crm.analytics.events")
	assert.Equal(t, "crm.analytics.events", p.w.Topic)
	require.NoError(t, p.Close())
}
