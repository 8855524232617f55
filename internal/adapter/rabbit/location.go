package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/pkg/logger"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/courierops/parcel-track-system/pkg/metrics"
	"github.com/courierops/parcel-track-system/pkg/rabbit"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeLocationFanout = "location_fanout"

	serviceName = "tracking"
)

// LocationBroker mirrors every broadcast sample onto the location_fanout
// exchange so out-of-process consumers (notifications, reporting) can
// follow the live stream without holding a socket.
type LocationBroker struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewLocationBroker(client *rabbit.RabbitMQ, l logger.Logger) *LocationBroker {
	return &LocationBroker{
		client: client,
		l:      l,
	}
}

// Setup declares the fanout exchange. Idempotent, safe to call on every start.
func (r *LocationBroker) Setup(ctx context.Context) error {
	const op = "LocationBroker.Setup"

	if err := r.client.Channel.ExchangeDeclare(
		ExchangeLocationFanout,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: declare exchange: %w", op, err))
	}

	return nil
}

func (r *LocationBroker) PublishParcelLocation(ctx context.Context, msg models.ParcelLocationEvent) error {
	ctx = wrap.WithAction(ctx, "publish_parcel_location")

	if err := r.publish(ctx, ExchangeLocationFanout, "", msg); err != nil {
		metrics.RecordRabbitMQPublish(serviceName, ExchangeLocationFanout, err)
		return wrap.Error(ctx, err)
	}

	metrics.RecordRabbitMQPublish(serviceName, ExchangeLocationFanout, nil)
	return nil
}

func (r *LocationBroker) publish(ctx context.Context, exchange, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		Timestamp:     time.Now(),
		CorrelationId: wrap.GetRequestID(ctx),
	}

	if err := retry(3, time.Second,
		func() error {
			if err := r.client.EnsureConnection(ctx); err != nil {
				return err
			}
			return r.client.Channel.PublishWithContext(
				ctx,
				exchange,
				routingKey,
				false,
				false,
				pub,
			)
		}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for range n {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}
