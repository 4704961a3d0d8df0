//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"feedlink/internal/audit"
	"feedlink/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaSinkSuite) TestProducesKeyedJSON() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "feedlink.audit." + uuid.NewString()
	sink, err := audit.NewKafkaSink(s.redpanda.Brokers, topic)
	s.Require().NoError(err)
	defer sink.Close()

	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1), "existing topic is accepted")

	event := audit.Event{
		ID:         uuid.NewString(),
		Type:       audit.EventDonationConfirmed,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
		DonationID: uuid.NewString(),
	}
	s.Require().NoError(sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(event.DonationID, string(records[0].Key))

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(event.ID, got.ID)
	s.Equal(audit.EventDonationConfirmed, got.Type)
}
