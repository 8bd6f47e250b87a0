package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"raffler/domain/interfaces"
	"raffler/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// requestSubject is where draw requests are published for the oracle
	requestSubject = "randomness.requests"

	// fulfillmentSubjectPrefix is the inbound side; the consumer name scopes
	// the subject so only this service's fulfillments arrive here. Producer
	// authentication on this subject is the oracle trust boundary.
	fulfillmentSubjectPrefix = "randomness.fulfillments."
)

// drawRequestMessage is the wire form of a randomness request
type drawRequestMessage struct {
	RequestID      string    `json:"request_id"`
	SubscriptionID string    `json:"subscription_id"`
	Consumer       string    `json:"consumer"`
	NumWords       int       `json:"num_words"`
	RequestedAt    time.Time `json:"requested_at"`
}

// fulfillmentMessage is the wire form of an oracle fulfillment
type fulfillmentMessage struct {
	RequestID   string   `json:"request_id"`
	RandomWords []uint64 `json:"random_words"`
}

// NATSRandomnessSource implements the RandomnessSource interface over NATS
// JetStream. Requests carry a locally generated correlation token; the
// fulfillment listener delivers callbacks bearing that token to the raffle
// service, which performs its own identity check.
type NATSRandomnessSource struct {
	client         *NATSClient
	subscriptionID string
	consumer       string
}

// NewNATSRandomnessSource creates a randomness source bound to an oracle
// subscription identity and a consumer name
func NewNATSRandomnessSource(client *NATSClient, subscriptionID, consumer string) *NATSRandomnessSource {
	return &NATSRandomnessSource{
		client:         client,
		subscriptionID: subscriptionID,
		consumer:       consumer,
	}
}

// RequestRandomWords publishes a draw request and returns its correlation
// token. A publish failure means the oracle rejected the request; no
// fulfillment will ever arrive for it.
func (s *NATSRandomnessSource) RequestRandomWords(ctx context.Context, req interfaces.RandomnessRequest) (string, error) {
	requestID := uuid.New().String()

	msg := drawRequestMessage{
		RequestID:      requestID,
		SubscriptionID: s.subscriptionID,
		Consumer:       s.consumer,
		NumWords:       req.NumWords,
		RequestedAt:    req.RequestedAt,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draw request: %w", err)
	}

	if err := s.client.Publish(ctx, requestSubject, payload); err != nil {
		return "", fmt.Errorf("failed to publish draw request: %w", err)
	}

	observability.GetMetrics().RecordOracleRequest()

	log.WithFields(log.Fields{
		"request_id":      requestID,
		"subscription_id": s.subscriptionID,
		"num_words":       req.NumWords,
		"player_count":    req.PlayerCount,
	}).Info("Published randomness request")

	return requestID, nil
}

// EnsureOracleStream ensures the JetStream stream backing the oracle
// subjects exists before publishing or subscribing
func (s *NATSRandomnessSource) EnsureOracleStream() error {
	subjects := []string{requestSubject, fulfillmentSubjectPrefix + ">"}
	return s.client.ensureStream("randomness", subjects, "Randomness oracle requests and fulfillments")
}

// StartFulfillmentListener subscribes to this consumer's fulfillment subject
// and routes each callback to the handler. Handler rejections are final:
// a fulfillment the raffle refuses (foreign request ID, wrong state) is
// dropped rather than redelivered.
func (s *NATSRandomnessSource) StartFulfillmentListener(ctx context.Context, handler interfaces.FulfillmentHandler) error {
	subject := fulfillmentSubjectPrefix + s.consumer

	return s.client.Subscribe(subject, func(data []byte) error {
		var msg fulfillmentMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal fulfillment: %w", err)
		}
		if msg.RequestID == "" || len(msg.RandomWords) == 0 {
			return fmt.Errorf("malformed fulfillment: request_id=%q words=%d", msg.RequestID, len(msg.RandomWords))
		}

		observability.GetMetrics().RecordOracleFulfillment()

		result, err := handler.HandleFulfillment(ctx, msg.RequestID, msg.RandomWords)
		if err != nil {
			log.WithFields(log.Fields{
				"request_id": msg.RequestID,
				"error":      err,
			}).Error("Fulfillment rejected by raffle")
			// ACK anyway: redelivering a rejected fulfillment cannot succeed
			return nil
		}

		log.WithFields(log.Fields{
			"request_id": result.RequestID,
			"winner":     result.Winner,
			"payout":     result.Payout,
		}).Info("Fulfillment settled raffle round")
		return nil
	})
}
