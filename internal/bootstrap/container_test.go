package bootstrap

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/service"
	"ai-docqa-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sweepingChatbot publishes STORE_SWEPT the way the real service does; every other method is unused.
type sweepingChatbot struct {
	service.IChatbotService
	publisher service.IPublisherService
}

func (s *sweepingChatbot) Sweep(ctx context.Context) error {
	s.publisher.Publish(ctx, events.NewSessionEvent(events.StoreSwept, "", map[string]interface{}{"ok": true}))
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) PushEvent(event events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.EventType())
	}
	return out
}

func TestStart_StartupSweepEventIsDelivered(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	notifier := &recordingNotifier{}
	log := logger.NewNopLogger()
	c := &Container{
		ChatbotService:  &sweepingChatbot{publisher: service.NewPublisherService(service.SessionEventsTopic, pubSub, log)},
		ConsumerService: service.NewConsumerService(pubSub, service.SessionEventsTopic, log, nil, notifier),
		Logger:          log,
	}

	c.Start(t.Context())

	require.Eventually(t, func() bool { return len(notifier.types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{events.StoreSwept}, notifier.types())
}
