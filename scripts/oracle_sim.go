//go:build oraclesim
// +build oraclesim

// Oracle simulator for local development: fulfills randomness requests so
// raffle rounds can settle without a real oracle.
//
// One-shot fulfillment:
//
//	go run -tags oraclesim ./scripts -mode fulfill -request-id <id> -word 42
//
// Auto mode (subscribe to requests and fulfill each with a random word):
//
//	go run -tags oraclesim ./scripts -mode auto
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raffler/infrastructure"
)

type requestMessage struct {
	RequestID      string    `json:"request_id"`
	SubscriptionID string    `json:"subscription_id"`
	Consumer       string    `json:"consumer"`
	NumWords       int       `json:"num_words"`
	RequestedAt    time.Time `json:"requested_at"`
}

type fulfillmentMessage struct {
	RequestID   string   `json:"request_id"`
	RandomWords []uint64 `json:"random_words"`
}

func main() {
	var (
		servers   = flag.String("servers", "nats://localhost:4222", "NATS server addresses")
		mode      = flag.String("mode", "auto", "fulfill or auto")
		consumer  = flag.String("consumer", "raffler", "consumer name scoping the fulfillment subject")
		requestID = flag.String("request-id", "", "request to fulfill (fulfill mode)")
		word      = flag.Uint64("word", 0, "random word to deliver (fulfill mode, 0 = generate)")
		delay     = flag.Duration("delay", time.Second, "delay before fulfilling (auto mode)")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := infrastructure.NewNATSClient(*servers)
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer client.Close()

	switch *mode {
	case "fulfill":
		if *requestID == "" {
			log.Fatal("fulfill mode requires -request-id")
		}
		w := *word
		if w == 0 {
			w = randomWord()
		}
		if err := publishFulfillment(ctx, client, *consumer, *requestID, w); err != nil {
			log.Fatalf("Failed to publish fulfillment: %v", err)
		}
		log.Printf("Fulfilled request %s with word %d", *requestID, w)

	case "auto":
		err := client.Subscribe("randomness.requests", func(data []byte) error {
			var req requestMessage
			if err := json.Unmarshal(data, &req); err != nil {
				log.Printf("Skipping malformed request: %v", err)
				return nil
			}
			log.Printf("Fulfilling request %s for consumer %s", req.RequestID, req.Consumer)

			time.Sleep(*delay)
			w := randomWord()
			if err := publishFulfillment(ctx, client, req.Consumer, req.RequestID, w); err != nil {
				return err
			}
			log.Printf("Fulfilled request %s with word %d", req.RequestID, w)
			return nil
		})
		if err != nil {
			log.Fatalf("Failed to subscribe to requests: %v", err)
		}

		log.Println("Oracle simulator running, waiting for requests...")
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

	default:
		log.Fatalf("Unknown mode: %s", *mode)
	}
}

func publishFulfillment(ctx context.Context, client *infrastructure.NATSClient, consumer, requestID string, word uint64) error {
	msg := fulfillmentMessage{
		RequestID:   requestID,
		RandomWords: []uint64{word},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return client.Publish(ctx, "randomness.fulfillments."+consumer, payload)
}

func randomWord() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		log.Fatalf("Failed to generate random word: %v", err)
	}
	return binary.BigEndian.Uint64(buf[:])
}
