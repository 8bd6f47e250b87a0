package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"raffler/application"
	"raffler/config"
	"raffler/database"
	"raffler/domain/interfaces"
	"raffler/domain/services"
	"raffler/infrastructure"
	"raffler/infrastructure/observability"
	"raffler/repository"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting raffler...")

	// Load configuration
	cfg := config.Get()

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize NATS
	log.Println("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Println("NATS connection established successfully")

	// Initialize event publishing
	subjectMapper := infrastructure.NewEventSubjectMapper()
	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, subjectMapper)
	if err := eventPublisher.EnsureRaffleEventStream(); err != nil {
		natsClient.Close()
		db.Close()
		return fmt.Errorf("failed to ensure raffle event stream: %w", err)
	}

	// Initialize randomness oracle transport
	randomnessSource := infrastructure.NewNATSRandomnessSource(natsClient, cfg.OracleSubscriptionID, cfg.OracleConsumer)
	if err := randomnessSource.EnsureOracleStream(); err != nil {
		natsClient.Close()
		db.Close()
		return fmt.Errorf("failed to ensure oracle stream: %w", err)
	}

	// Initialize unit of work factory with per-transaction buffered publishers
	uowFactory := repository.NewUnitOfWorkFactory(db, func() interfaces.TransactionalEventPublisher {
		return infrastructure.NewBufferedEventPublisher(eventPublisher)
	})

	// Initialize raffle service
	raffleService := services.NewRaffleService(
		cfg.EntranceFee,
		cfg.DrawInterval,
		cfg.PoolAccount,
		uowFactory,
		randomnessSource,
		eventPublisher,
	)

	// Start the fulfillment listener so oracle callbacks settle rounds
	if err := randomnessSource.StartFulfillmentListener(ctx, raffleService); err != nil {
		natsClient.Close()
		db.Close()
		return fmt.Errorf("failed to start fulfillment listener: %w", err)
	}

	// Start the draw keeper
	keeper := application.NewDrawKeeper(raffleService, cfg.KeeperPollInterval)
	stopKeeper := keeper.Start(ctx)

	// Wait for context cancellation
	log.Printf("Raffler is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down raffler...")

	stopKeeper()

	if err := natsClient.Close(); err != nil {
		log.Printf("Error closing NATS connection: %v", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics: %v", err)
	}

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
