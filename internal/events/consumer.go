package events

import (
	"access_service/internal/apperrors"
	"access_service/internal/config"
	"access_service/internal/models"
	"access_service/internal/repository"
	"context"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// EventConsumer keeps the local user mirror in sync with the account system:
// every registered user must carry a level before the resolver can answer for
// them.
type EventConsumer struct {
	rabbitMQ *RabbitMQClient
	repos    *repository.Repositories
}

func NewEventConsumer(rabbitURI string) (*EventConsumer, error) {
	client, err := NewRabbitMQClient(rabbitURI)
	if err != nil {
		return nil, err
	}

	if err := client.setupExchangesAndQueues(); err != nil {
		client.Close()
		return nil, err
	}

	return &EventConsumer{
		rabbitMQ: client,
		repos:    repository.Repositories_instance,
	}, nil
}

func (c *EventConsumer) Start(ctx context.Context) error {
	deliveries, err := c.rabbitMQ.Consume("user.registered.access")
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Println("Event consumer stopped")
				return
			case delivery, ok := <-deliveries:
				if !ok {
					log.Println("Delivery channel closed, consumer exiting")
					return
				}

				c.handleDelivery(ctx, delivery)
			}
		}
	}()

	return nil
}

// handleDelivery acks or nacks one message. Bad payloads fail the same way on
// every redelivery, so they are acked and discarded rather than requeued into
// a tight loop; only transient storage failures go back on the queue.
func (c *EventConsumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	err := c.handleUserRegistered(ctx, delivery.Body)
	if err == nil {
		delivery.Ack(false)
		return
	}

	if apperrors.IsRecoverable(err) {
		log.Printf("Discarding user.registered event: %s", err)
		delivery.Ack(false)
		return
	}

	log.Printf("Error handling user.registered event, requeueing: %s", err)
	delivery.Nack(false, true)
}

func (c *EventConsumer) handleUserRegistered(ctx context.Context, body []byte) error {
	var event UserRegisteredEvent
	if err := event.FromJSON(body); err != nil {
		return &apperrors.ValidationError{Field: "body", Reason: "malformed user.registered payload"}
	}

	userID, err := bson.ObjectIDFromHex(event.UserID)
	if err != nil {
		return &apperrors.ValidationError{Field: "user_id", Reason: "is not a valid object id"}
	}

	if existing, err := c.repos.UserRepository.FindByID(ctx, userID); err == nil && existing != nil {
		log.Printf("User %s already mirrored, skipping", event.UserID)
		return nil
	}

	level, err := c.repos.LevelRepository.FindByName(ctx, config.ServiceConfig.DefaultLevelName)
	if err != nil {
		return err
	}

	user := &models.User{
		ID:       userID,
		Username: event.Username,
		Email:    event.Email,
		LevelID:  level.ID,
	}

	if _, err := c.repos.UserRepository.Insert(ctx, user); err != nil {
		return err
	}

	log.Printf("Mirrored registered user %s with level '%s'", event.UserID, level.Name)
	return nil
}

func (c *EventConsumer) Close() error {
	return c.rabbitMQ.Close()
}
