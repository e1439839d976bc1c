// Package amqp carries import jobs over RabbitMQ so that API processes and
// workers can run separately.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/jobs"
)

const (
	DefaultExchange = "budgetai"
	DefaultQueue    = "budgetai.imports"

	publishTimeout = 5 * time.Second
)

// Client publishes and consumes import jobs on a durable direct exchange.
// The queue is bound with its own name as routing key.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	store        jobs.JobStore
	log          zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewClient dials url and declares the exchange and queue. store may be nil;
// when set, job state transitions are recorded in it.
func NewClient(url, exchangeName, queueName string, store jobs.JobStore, log zerolog.Logger) (*Client, error) {
	if exchangeName == "" {
		exchangeName = DefaultExchange
	}
	if queueName == "" {
		queueName = DefaultQueue
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("NewClient: dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("NewClient: open channel: %w", err)
	}

	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		store:        store,
		log:          log,
	}

	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("NewClient: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	// One unacked job per consumer.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// PublishImport implements jobs.Publisher.
func (c *Client) PublishImport(ctx context.Context, job *jobs.ImportTransactionsJob) error {
	prepare(job, time.Now())

	if c.store != nil {
		if err := c.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishImport: save job: %w", err)
		}
	}

	body, err := encodeJob(job)
	if err != nil {
		return fmt.Errorf("PublishImport: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    job.JobID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("PublishImport: publish: %w", err)
	}

	c.log.Info().
		Str("job_id", job.JobID).
		Str("exchange", c.exchangeName).
		Str("queue", c.queueName).
		Msg("Published import job")
	return nil
}

// Start implements jobs.Consumer. Deliveries are handled one at a time on a
// background goroutine until ctx is cancelled or Stop is called.
func (c *Client) Start(ctx context.Context, handler jobs.JobHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return fmt.Errorf("Start: client is stopped")
	}
	if c.done != nil {
		return fmt.Errorf("Start: already consuming")
	}

	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("Start: consume: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	c.log.Info().Str("queue", c.queueName).Msg("Started consuming import jobs")
	go c.consume(ctx, msgs, handler)
	return nil
}

func (c *Client) consume(ctx context.Context, msgs <-chan amqp091.Delivery, handler jobs.JobHandler) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Err(ctx.Err()).Msg("Stopping import job consumption")
			return
		case delivery, ok := <-msgs:
			if !ok {
				c.log.Warn().Msg("AMQP delivery channel closed")
				return
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler jobs.JobHandler) {
	job, err := decodeJob(delivery.Body)
	if err != nil {
		c.log.Error().Err(err).Msg("Discarding undecodable import job")
		_ = delivery.Nack(false, false)
		return
	}

	startedAt := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &startedAt
	c.save(ctx, job)

	herr := handler(ctx, job)
	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch next := nextStatus(job, herr); next {
	case jobs.JobStatusCompleted:
		job.Status = next
		job.Error = ""
		c.save(ctx, job)
		_ = delivery.Ack(false)

	case jobs.JobStatusRetrying:
		job.Error = herr.Error()
		job.RetryCount++
		job.Status = next
		c.save(ctx, job)

		retry := *job
		retry.Status = jobs.JobStatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		if err := c.PublishImport(ctx, &retry); err != nil {
			c.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to republish import job, requeueing")
			_ = delivery.Nack(false, true)
			return
		}
		_ = delivery.Ack(false)

	default:
		job.Error = herr.Error()
		job.Status = next
		c.save(ctx, job)
		c.log.Error().Err(herr).Str("job_id", job.JobID).Int("retries", job.RetryCount).Msg("Import job failed")
		_ = delivery.Ack(false)
	}
}

func (c *Client) save(ctx context.Context, job *jobs.ImportTransactionsJob) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveJob(ctx, job); err != nil {
		c.log.Warn().Err(err).Str("job_id", job.JobID).Msg("Failed to record job state")
	}
}

// Stop implements jobs.Consumer.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements jobs.Publisher. It stops consumption and closes the connection.
func (c *Client) Close() error {
	_ = c.Stop(context.Background())
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// prepare fills in defaults for a job about to be queued.
func prepare(job *jobs.ImportTransactionsJob, now time.Time) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}
}

// nextStatus decides what happens to a job after one attempt.
func nextStatus(job *jobs.ImportTransactionsJob, err error) jobs.JobStatus {
	switch {
	case err == nil:
		return jobs.JobStatusCompleted
	case job.RetryCount < job.MaxRetries:
		return jobs.JobStatusRetrying
	default:
		return jobs.JobStatusFailed
	}
}

func encodeJob(job *jobs.ImportTransactionsJob) ([]byte, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	return body, nil
}

func decodeJob(body []byte) (*jobs.ImportTransactionsJob, error) {
	var job jobs.ImportTransactionsJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if job.JobID == "" {
		return nil, fmt.Errorf("decode job: missing job_id")
	}
	return &job, nil
}

var (
	_ jobs.Publisher = (*Client)(nil)
	_ jobs.Consumer  = (*Client)(nil)
)
