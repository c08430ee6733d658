package service

import (
	"context"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// SessionEventsTopic is the in-process topic carrying session lifecycle events.
const SessionEventsTopic = "docqa.session.events"

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event)
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	logger    logger.ILogger
}

func NewPublisherService(topicName string, publisher message.Publisher, log logger.ILogger) IPublisherService {
	if topicName == "" {
		topicName = SessionEventsTopic
	}
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		logger:    log,
	}
}

// Publish never fails the caller; a dropped event is only logged.
func (ps *publisherService) Publish(_ context.Context, event events.Event) {
	payload, err := events.Marshal(event)
	if err != nil {
		ps.logger.Warn("PublisherService", "Failed to marshal event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		ps.logger.Warn("PublisherService", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
