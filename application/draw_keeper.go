package application

import (
	"context"
	"errors"
	"time"

	"raffler/domain/entities"
	"raffler/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// DrawKeeper polls the raffle's schedule gate and initiates draws when the
// gate opens. The check here is speculative; InitiateDraw re-evaluates the
// same gate authoritatively, so a disagreement between the two is benign.
type DrawKeeper struct {
	service      interfaces.RaffleService
	pollInterval time.Duration
}

// NewDrawKeeper creates a new draw keeper
func NewDrawKeeper(service interfaces.RaffleService, pollInterval time.Duration) *DrawKeeper {
	return &DrawKeeper{
		service:      service,
		pollInterval: pollInterval,
	}
}

// Start begins the keeper loop and returns a cleanup function
func (k *DrawKeeper) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("poll_interval", k.pollInterval).Info("Draw keeper started")

		ticker := time.NewTicker(k.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Draw keeper shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Draw keeper shutting down (stop requested)...")
				return
			case <-ticker.C:
				k.poll(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

func (k *DrawKeeper) poll(ctx context.Context) {
	ready, diag := k.service.CheckDrawReady(time.Now().UTC())
	if !ready {
		log.WithFields(log.Fields{
			"pool_balance": diag.Balance,
			"player_count": diag.PlayerCount,
			"state":        diag.State.String(),
		}).Debug("Draw not ready")
		return
	}

	requestID, err := k.service.InitiateDraw(ctx)
	if err != nil {
		var notReady *entities.DrawNotReadyError
		if errors.As(err, &notReady) {
			// Lost the race against another initiator between the speculative
			// and authoritative checks
			log.WithField("state", notReady.State.String()).Debug("Draw no longer ready")
			return
		}
		log.WithError(err).Error("Failed to initiate draw")
		return
	}

	log.WithField("request_id", requestID).Info("Keeper initiated draw")
}
