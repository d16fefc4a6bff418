//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"soulpass/internal/events"
	id "soulpass/pkg/domain"
	"soulpass/pkg/testutil/containers"
)

func TestKafkaSinkProducesEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redpanda := containers.NewRedpandaContainer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "soulpass.ledger.events"
	sink, err := events.NewKafkaSink(ctx, redpanda.Brokers, topic)
	require.NoError(t, err)
	defer sink.Close()

	emitted := events.Event{
		ID:        "evt-1",
		Type:      events.TypePassportCreated,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		TokenID:   id.TokenID(0),
		Owner:     "0x00112233445566778899aabbccddeeff00112233",
		MemberTier: "Bronze",
	}
	require.NoError(t, sink.Append(ctx, emitted))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "0", string(records[0].Key))

	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, emitted.ID, got.ID)
	assert.Equal(t, events.TypePassportCreated, got.Type)
	assert.Equal(t, emitted.Owner, got.Owner)
}
