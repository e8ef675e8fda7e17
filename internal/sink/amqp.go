// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

package sink

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	pkgerrors "github.com/pkg/errors"
)

// ErrNotAcked is returned when the broker returns a negative (or missing)
// publisher confirmation for a published line.
var ErrNotAcked = pkgerrors.New("amqp: publish was not confirmed")

// AMQPConfig configures an AMQPAdapter.
type AMQPConfig struct {
	URI        string
	Exchange   string
	RoutingKey string
}

// AMQPAdapter publishes each line to an AMQP exchange and does not consider
// the send durable until the broker's publisher-confirm acknowledges it.
// Connection loss is handled with an exponential backoff reconnect; Send
// blocks until the broker acks or nacks the line, the reconnect backoff
// gives up, or the context is cancelled.
type AMQPAdapter struct {
	cfg AMQPConfig
	log *zap.SugaredLogger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPAdapter dials the broker and enables publisher confirms on the
// channel used for all subsequent sends.
func NewAMQPAdapter(ctx context.Context, cfg AMQPConfig, log *zap.SugaredLogger) (*AMQPAdapter, error) {
	a := &AMQPAdapter{cfg: cfg, log: log}
	if err := a.connect(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AMQPAdapter) connect(ctx context.Context) error {
	operation := func() error {
		conn, err := amqp.DialConfig(a.cfg.URI, amqp.Config{})
		if err != nil {
			return pkgerrors.Wrap(err, "dialing amqp broker")
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return pkgerrors.Wrap(err, "opening amqp channel")
		}
		if err := ch.Confirm(false); err != nil {
			ch.Close()
			conn.Close()
			return pkgerrors.Wrap(err, "enabling amqp publisher confirms")
		}

		a.mu.Lock()
		a.conn, a.ch = conn, ch
		a.mu.Unlock()
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.RetryNotify(operation, bo, func(err error, wait time.Duration) {
		a.log.Warnw("amqp connect failed, retrying", "error", err, "wait", wait)
	})
}

// Send publishes line to the configured exchange/routing key and blocks
// until the broker confirms delivery. On a connection error, it reconnects
// with exponential backoff and retries the same publish.
func (a *AMQPAdapter) Send(ctx context.Context, offset uint64, line string) error {
	for {
		a.mu.Lock()
		ch := a.ch
		a.mu.Unlock()

		if ch == nil {
			if err := a.connect(ctx); err != nil {
				return err
			}
			continue
		}

		confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx, a.cfg.Exchange, a.cfg.RoutingKey,
			false, false,
			amqp.Publishing{
				ContentType: "text/plain",
				Body:        []byte(line),
				Timestamp:   time.Now(),
				Headers:     amqp.Table{"offset": int64(offset)},
			},
		)
		if err != nil {
			a.log.Warnw("amqp publish failed, reconnecting", "error", err)
			a.invalidate()
			if err := a.connect(ctx); err != nil {
				return err
			}
			continue
		}

		ok, err := confirmation.WaitContext(ctx)
		if err != nil {
			return pkgerrors.Wrap(err, "waiting for amqp confirmation")
		}
		if !ok {
			return ErrNotAcked
		}
		return nil
	}
}

func (a *AMQPAdapter) invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ch != nil {
		a.ch.Close()
		a.ch = nil
	}
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}

// Close tears down the AMQP connection.
func (a *AMQPAdapter) Close() error {
	a.invalidate()
	return nil
}
