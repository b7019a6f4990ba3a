//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "bindery/pkg/domain"
	audit "bindery/pkg/platform/audit"
	"bindery/pkg/testutil/containers"
)

func TestKafkaSinkDeliversEnvelope(t *testing.T) {
	broker := containers.NewRedpandaContainer(t).Broker
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink, err := New(ctx, Config{Brokers: []string{broker}, Topic: "test.binding-events"}, logger)
	require.NoError(t, err)

	event := audit.Event{
		Name:      audit.EventBindingAccepted,
		Timestamp: time.Now().UTC(),
		AccountID: id.MustAccountID("alice"),
		Platform:  "twitter",
		Handle:    "alice001",
	}
	require.NoError(t, sink.Append(ctx, event))
	require.NoError(t, sink.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics("test.binding-events"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	// keyed by account so per-account ordering survives partitioning
	require.Equal(t, []byte("alice"), records[0].Key)

	var envelope struct {
		Standard string        `json:"standard"`
		Version  string        `json:"version"`
		Event    string        `json:"event"`
		Data     []audit.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(records[0].Value, &envelope))
	require.Equal(t, audit.EventStandard, envelope.Standard)
	require.Equal(t, audit.EventVersion, envelope.Version)
	require.Equal(t, string(audit.EventBindingAccepted), envelope.Event)
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "alice001", envelope.Data[0].Handle)
}
