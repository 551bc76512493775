package queue

// The scan consumer listens to the record.scanned queue and appends one
// audit line per accepted scan to <dir>/scan.log.

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// StartScanConsumer connects to RabbitMQ, declares the record.scanned queue
// (durable), and starts consuming messages. It reconnects with exponential
// backoff whenever the broker goes away and only returns once ctx is
// cancelled. Messages that cannot be handled are rejected without requeue.
func StartScanConsumer(ctx context.Context, url, logDir string) error {
    log := logrus.WithField("component", "scan-consumer")
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, logDir)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.WithError(err).Warn("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logrus.WithError(err).Warn("scan-consumer: set QoS failed")
    }

    if _, err := ch.QueueDeclare(ScanQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(ScanQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(d.Body, logDir); err != nil {
                logrus.WithError(err).Error("scan-consumer: handle message failed")
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(body []byte, logDir string) error {
    var ev RecordScannedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.RecordID == "" {
        return errors.New("event without record_id")
    }
    if err := os.MkdirAll(logDir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(logDir, "scan.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev RecordScannedEvent) string {
    number := ""
    if ev.Number > 0 {
        number = fmt.Sprintf(" | number=%d", ev.Number)
    }
    return fmt.Sprintf("[%s] Entry granted | kind=%s | id=%s%s | holder=%q | email=%q | by=%s\n",
        ev.ScannedAt, ev.Kind, ev.RecordID, number, ev.HolderName, ev.HolderEmail, ev.ScannedBy)
}
