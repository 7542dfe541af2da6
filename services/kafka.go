package services

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"intellicourse/config"
	"intellicourse/logger"
)

var (
	producer      *kafka.Writer
	producerMutex sync.Mutex
)

// Payment lifecycle event names published to the payments topic.
const (
	EventPaymentInitiated  = "payment.initiated"
	EventPaymentConfirmed  = "payment.confirmed"
	EventPaymentFailed     = "payment.failed"
	EventPayoutDistributed = "payout.distributed"
)

// InitProducer initializes a Kafka writer using brokers from the config
func InitProducer() {
	producerMutex.Lock()
	defer producerMutex.Unlock()

	if config.AppConfig.KafkaBrokers == "" {
		logger.Info("Kafka is disabled (KAFKA_BROKERS is empty)")
		return
	}

	brokers := strings.Split(config.AppConfig.KafkaBrokers, ",")

	var validBrokers []string
	for _, b := range brokers {
		if b := strings.TrimSpace(b); b != "" {
			validBrokers = append(validBrokers, b)
		}
	}

	if len(validBrokers) == 0 {
		logger.Warn("No valid Kafka brokers configured")
		return
	}

	producer = &kafka.Writer{
		Addr:         kafka.TCP(validBrokers...),
		Balancer:     &kafka.LeastBytes{},
		Async:        false,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}

	logger.Info("Kafka producer initialized. Brokers=%v", validBrokers)
}

// Publish marshals value to JSON and publishes to the configured topic with
// key. Retries three times with exponential backoff; publishing is
// best-effort and a disabled producer is not an error.
func Publish(key string, value interface{}) error {
	producerMutex.Lock()
	defer producerMutex.Unlock()

	if producer == nil || config.AppConfig.KafkaBrokers == "" {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		logger.Error("Error marshaling Kafka message: %v", err)
		return err
	}

	msg := kafka.Message{
		Topic: config.AppConfig.KafkaTopic,
		Key:   []byte(key),
		Value: payload,
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := producer.WriteMessages(ctx, msg)
		cancel()

		if err == nil {
			return nil
		}

		lastErr = err
		if attempt < 2 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			logger.Warn("Kafka publish attempt %d/3 failed, retrying in %v: %v", attempt+1, backoff, err)
			time.Sleep(backoff)
		} else {
			logger.Error("Kafka publish failed after 3 attempts: %v", err)
		}
	}

	return lastErr
}

// PublishPaymentEvent publishes a payment lifecycle event keyed by payment
// id, best-effort in a goroutine so callers never block on the broker.
func PublishPaymentEvent(event, paymentID string, fields map[string]interface{}) {
	evt := map[string]interface{}{
		"event":      event,
		"payment_id": paymentID,
		"ts":         time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range fields {
		evt[k] = v
	}
	go func() {
		if err := Publish("payment-"+paymentID, evt); err != nil {
			logger.Warn("Failed to publish %s event: %v", event, err)
		}
	}()
}

// Close flushes and closes the Kafka producer
func Close() error {
	producerMutex.Lock()
	defer producerMutex.Unlock()

	if producer == nil {
		return nil
	}
	err := producer.Close()
	producer = nil
	return err
}
