package testutil

import (
	"time"

	"raffler/domain/entities"
)

// CreateTestDrawRecord creates a settled draw record with default values
func CreateTestDrawRecord(requestID, winner string) *entities.DrawRecord {
	return &entities.DrawRecord{
		RequestID:   requestID,
		RandomWord:  7,
		Winner:      winner,
		WinnerIndex: 1,
		Payout:      300,
		PlayerCount: 3,
		SettledAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}
