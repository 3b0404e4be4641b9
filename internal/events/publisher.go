package events

import (
	"context"
	"log"
)

type Publisher interface {
	PublishAuditRecorded(ctx context.Context, actorAddress, entityType, entityID, message string) error

	// Close closes the publisher and releases resources
	Close() error
}

type EventPublisher struct {
	rabbitMQ *RabbitMQClient
	enabled  bool
}

func NewEventPublisher(rabbitURI string) (*EventPublisher, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{
			rabbitMQ: nil,
			enabled:  false,
		}, nil
	}

	client, err := NewRabbitMQClient(rabbitURI)
	if err != nil {
		return nil, err
	}

	err = client.setupExchangesAndQueues()
	if err != nil {
		client.Close()
		return nil, err
	}

	return &EventPublisher{
		rabbitMQ: client,
		enabled:  true,
	}, nil
}

// PublishAuditRecorded mirrors a committed audit record onto the audit-events
// exchange. Callers treat failures as non-fatal; the Mongo record is the
// source of truth.
func (p *EventPublisher) PublishAuditRecorded(ctx context.Context, actorAddress, entityType, entityID, message string) error {
	if !p.enabled {
		log.Println("Event publishing is disabled, skipping AuditRecordedEvent")
		return nil
	}

	event := NewAuditRecordedEvent(actorAddress, entityType, entityID, message)

	eventData, err := event.ToJSON()
	if err != nil {
		return err
	}

	err = p.rabbitMQ.PublishEvent("audit-events", string(AuditRecorded), eventData)
	if err != nil {
		return err
	}

	log.Printf("Published AuditRecorded event for %s %s", entityType, entityID)
	return nil
}

// Close releases resources
func (p *EventPublisher) Close() error {
	if !p.enabled || p.rabbitMQ == nil {
		return nil
	}

	return p.rabbitMQ.Close()
}
