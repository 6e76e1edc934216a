// Package queue provides an optional AMQP leg for push-notification jobs.
// When an AMQP URL is configured, inbound communications publish a job here
// and a consumer drains the queue; without it the push service falls back to
// an in-process goroutine. Either way delivery is fire-and-forget: a failed
// job is logged and dropped, never retried.
package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// PushJobQueue is the queue name for notification fan-out jobs.
const PushJobQueue = "push_notification_jobs"

// PushJob asks the consumer to fan a notification out to every registered
// subscription.
type PushJob struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	RoomID string `json:"room_id"`
}

// Broker is a thin wrapper over one AMQP connection and channel.
type Broker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the AMQP server and declares the push job queue.
func Dial(url string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(PushJobQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Broker{conn: conn, ch: ch}, nil
}

// Close tears down the channel and connection.
func (b *Broker) Close() {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

// PublishPushJob enqueues one notification job.
func (b *Broker) PublishPushJob(ctx context.Context, job PushJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return b.ch.PublishWithContext(ctx, "", PushJobQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// ConsumePushJobs drains the queue until ctx is cancelled, invoking handle
// per job. Handler failures are logged and the message is acked anyway; push
// fan-out is best-effort and a poison job must not wedge the queue.
func (b *Broker) ConsumePushJobs(ctx context.Context, handle func(context.Context, PushJob)) error {
	deliveries, err := b.ch.Consume(PushJobQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var job PushJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					log.Warn().Err(err).Msg("push job: malformed payload, dropping")
					_ = d.Ack(false)
					continue
				}
				handle(ctx, job)
				_ = d.Ack(false)
			}
		}
	}()
	return nil
}
