package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"raffler/cmd"
	"raffler/config"
	"raffler/database"
	"raffler/repository"
)

func main() {
	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error:", err)
		}
		return
	}

	// Check for account seeding subcommand
	if len(os.Args) > 1 && os.Args[1] == "deposit" {
		if err := handleDeposit(); err != nil {
			log.Fatal("Deposit error:", err)
		}
		return
	}

	// Check for draw history subcommand
	if len(os.Args) > 1 && os.Args[1] == "history" {
		if err := handleHistory(); err != nil {
			log.Fatal("History error:", err)
		}
		return
	}

	// Normal service operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Run the application
	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error:", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: raffler migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

// handleDeposit credits an account directly. Admin-only escape hatch for
// seeding player balances.
func handleDeposit() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: raffler deposit account amount")
	}
	accountID := os.Args[2]
	amount, err := strconv.ParseInt(os.Args[3], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", os.Args[3], err)
	}

	ctx := context.Background()
	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	accounts := repository.NewAccountRepository(db)
	if err := accounts.Deposit(ctx, accountID, amount); err != nil {
		return err
	}

	balance, err := accounts.GetBalance(ctx, accountID)
	if err != nil {
		return err
	}
	log.Printf("Account %s credited %d, balance is now %d", accountID, amount, balance)
	return nil
}

// handleHistory prints the most recent settled draws
func handleHistory() error {
	limit := 10
	if len(os.Args) > 2 {
		parsed, err := strconv.Atoi(os.Args[2])
		if err != nil {
			return fmt.Errorf("invalid limit %q: %w", os.Args[2], err)
		}
		limit = parsed
	}

	ctx := context.Background()
	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	draws := repository.NewDrawRecordRepository(db)
	records, err := draws.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		log.Println("No settled draws yet")
		return nil
	}
	for _, record := range records {
		log.Printf("%s  winner=%s payout=%d players=%d request=%s",
			record.SettledAt.Format("2006-01-02 15:04:05"),
			record.Winner, record.Payout, record.PlayerCount, record.RequestID)
	}
	return nil
}
