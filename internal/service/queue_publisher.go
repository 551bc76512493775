package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    q "github.com/iliyamo/guest-pass/internal/queue"
)

// ScanPublisher publishes RecordScannedEvent to the "record.scanned" queue.
// Each publish opens its own connection. Errors are logged and returned so
// the caller can choose to ignore them.
type ScanPublisher struct {
    url string
}

func NewScanPublisher(url string) *ScanPublisher {
    return &ScanPublisher{url: url}
}

// PublishRecordScanned implements EventPublisher. Messages are persistent.
func (p *ScanPublisher) PublishRecordScanned(ctx context.Context, event q.RecordScannedEvent) error {
    log := logrus.WithField("record_id", event.RecordID)

    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(2 * time.Second)})
    if err != nil {
        log.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        q.ScanQueueName, // name
        true,            // durable
        false,           // autoDelete
        false,           // exclusive
        false,           // noWait
        nil,             // args
    ); err != nil {
        log.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",              // default exchange
        q.ScanQueueName, // routing key = queue name
        false,           // mandatory
        false,           // immediate
        pub,
    ); err != nil {
        log.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    return nil
}
