package amqp

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"spendsync/internal/broadcast"
)

const contentType = "application/json"

// publishing wraps msg for the wire. Messages are transient: a broker restart
// loses them like any other undelivered broadcast.
func publishing(msg broadcast.Message, origin string) (amqp091.Publishing, error) {
	if err := msg.Validate(); err != nil {
		return amqp091.Publishing{}, err
	}
	if msg.Origin == "" {
		msg.Origin = origin
	}
	body, err := msg.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	ts := msg.SentAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp091.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp091.Transient,
		AppId:        origin,
		Type:         string(msg.Type),
		Timestamp:    ts,
		Body:         body,
	}, nil
}

// decodeDelivery reports own as true for messages this tab published itself.
func decodeDelivery(d amqp091.Delivery, origin string) (msg broadcast.Message, own bool, err error) {
	if origin != "" && d.AppId == origin {
		return broadcast.Message{}, true, nil
	}
	msg, err = broadcast.MessageFromJSON(d.Body)
	return msg, false, err
}
