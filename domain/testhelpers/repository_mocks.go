package testhelpers

import (
	"context"

	"raffler/domain/entities"
	"raffler/domain/events"
	"raffler/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetBalance(ctx context.Context, account string) (int64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) Deposit(ctx context.Context, account string, amount int64) error {
	args := m.Called(ctx, account, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) Transfer(ctx context.Context, from, to string, amount int64) error {
	args := m.Called(ctx, from, to, amount)
	return args.Error(0)
}

// MockDrawRecordRepository is a mock implementation of DrawRecordRepository
type MockDrawRecordRepository struct {
	mock.Mock
}

func (m *MockDrawRecordRepository) Create(ctx context.Context, record *entities.DrawRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDrawRecordRepository) GetLatest(ctx context.Context) (*entities.DrawRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DrawRecord), args.Error(1)
}

func (m *MockDrawRecordRepository) ListRecent(ctx context.Context, limit int) ([]*entities.DrawRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DrawRecord), args.Error(1)
}

// MockRandomnessSource is a mock implementation of RandomnessSource
type MockRandomnessSource struct {
	mock.Mock
}

func (m *MockRandomnessSource) RequestRandomWords(ctx context.Context, req interfaces.RandomnessRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// RecordingEventPublisher collects published events for assertions
type RecordingEventPublisher struct {
	Events []events.Event
}

func (p *RecordingEventPublisher) Publish(event events.Event) error {
	p.Events = append(p.Events, event)
	return nil
}
