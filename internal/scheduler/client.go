// Package scheduler moves webhook reconciliation onto an asynq queue so the
// webhook endpoint can acknowledge the gateway before the CRM work runs.
package scheduler

import (
	"context"
	"crypto/tls"
	"errors"

	"inspection_booking_backend/internal/webhook"
	"inspection_booking_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueue    = "default"
	webhookMaxRetry = 10
)

var errNoRedis = errors.New("scheduler: REDIS_URL not configured")

// Client enqueues reconciliation tasks.
type Client struct {
	client *asynq.Client
	queue  string
}

var _ webhook.Enqueuer = (*Client)(nil)

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, queue, err := connection(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(opt), queue: queue}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueWebhook queues ev once per gateway event id. A redelivered event
// whose task is still queued or retained counts as enqueued.
func (c *Client) EnqueueWebhook(ctx context.Context, ev webhook.Event) error {
	if c == nil || c.client == nil {
		return errors.New("scheduler: client not configured")
	}
	task, err := NewWebhookReconcileTask(ev)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.TaskID(webhookTaskID(ev.ID)),
		asynq.Queue(c.queue),
		asynq.MaxRetry(webhookMaxRetry),
	)
	return ignoreDuplicate(err)
}

func ignoreDuplicate(err error) error {
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// connection resolves the redis options and queue shared by client and
// worker.
func connection(cfg config.SchedulerConfig) (asynq.RedisClientOpt, string, error) {
	if cfg.GetRedisURL() == "" {
		return asynq.RedisClientOpt{}, "", errNoRedis
	}
	parsed, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, "", err
	}

	tlsConfig := parsed.TLSConfig
	if cfg.GetRedisTLSInsecure() {
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		} else {
			tlsConfig = tlsConfig.Clone()
		}
		tlsConfig.InsecureSkipVerify = true
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = defaultQueue
	}
	return asynq.RedisClientOpt{
		Addr:      parsed.Addr,
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: tlsConfig,
	}, queue, nil
}
