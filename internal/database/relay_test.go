package database

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*OutboxEvent), args.Error(1)
}

func (m *mockOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	args := m.Called(ctx, id, cause)
	return args.Error(0)
}

type mockRedisClient struct {
	mock.Mock
}

func (m *mockRedisClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	args := m.Called(ctx, a)
	cmd := redis.NewStringCmd(ctx)
	if err := args.Error(0); err != nil {
		cmd.SetErr(err)
	}
	return cmd
}

func testEvent() *OutboxEvent {
	return &OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "product",
		AggregateID:   "wi193679",
		EventType:     "PRODUCT_DISCOVERED",
		Payload:       []byte(`{"id":"wi193679"}`),
		TargetStream:  "products:discovered",
		Status:        OutboxStatusPending,
		CreatedAt:     time.Now(),
	}
}

func TestRelayProcessBatch_PublishesAndMarksProcessed(t *testing.T) {
	repo := new(mockOutboxRepo)
	redisClient := new(mockRedisClient)
	event := testEvent()

	repo.On("GetPending", mock.Anything, 50).Return([]*OutboxEvent{event}, nil)
	redisClient.On("XAdd", mock.Anything, mock.MatchedBy(func(a *redis.XAddArgs) bool {
		return a.Stream == "products:discovered" &&
			a.Values.(map[string]interface{})["aggregate_id"] == "wi193679"
	})).Return(nil)
	repo.On("MarkProcessed", mock.Anything, event.ID).Return(nil)

	relay := NewRelay(repo, redisClient, slog.Default())
	err := relay.ProcessBatch(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
	redisClient.AssertExpectations(t)
}

func TestRelayProcessBatch_MarksFailedOnPublishError(t *testing.T) {
	repo := new(mockOutboxRepo)
	redisClient := new(mockRedisClient)
	event := testEvent()
	publishErr := errors.New("connection refused")

	repo.On("GetPending", mock.Anything, 50).Return([]*OutboxEvent{event}, nil)
	redisClient.On("XAdd", mock.Anything, mock.Anything).Return(publishErr)
	repo.On("MarkFailed", mock.Anything, event.ID, mock.Anything).Return(nil)

	relay := NewRelay(repo, redisClient, slog.Default())
	err := relay.ProcessBatch(context.Background())

	require.NoError(t, err)
	repo.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestRelayProcessBatch_ContinuesAfterFailedEvent(t *testing.T) {
	repo := new(mockOutboxRepo)
	redisClient := new(mockRedisClient)
	bad := testEvent()
	good := testEvent()
	good.AggregateID = "wi520842"

	repo.On("GetPending", mock.Anything, 50).Return([]*OutboxEvent{bad, good}, nil)
	redisClient.On("XAdd", mock.Anything, mock.MatchedBy(func(a *redis.XAddArgs) bool {
		return a.Values.(map[string]interface{})["aggregate_id"] == "wi193679"
	})).Return(errors.New("stream full"))
	redisClient.On("XAdd", mock.Anything, mock.MatchedBy(func(a *redis.XAddArgs) bool {
		return a.Values.(map[string]interface{})["aggregate_id"] == "wi520842"
	})).Return(nil)
	repo.On("MarkFailed", mock.Anything, bad.ID, mock.Anything).Return(nil)
	repo.On("MarkProcessed", mock.Anything, good.ID).Return(nil)

	relay := NewRelay(repo, redisClient, slog.Default())
	err := relay.ProcessBatch(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
	redisClient.AssertExpectations(t)
}

func TestRelayProcessBatch_GetPendingError(t *testing.T) {
	repo := new(mockOutboxRepo)
	redisClient := new(mockRedisClient)

	repo.On("GetPending", mock.Anything, 50).Return(nil, errors.New("db down"))

	relay := NewRelay(repo, redisClient, slog.Default())
	err := relay.ProcessBatch(context.Background())

	assert.Error(t, err)
	redisClient.AssertNotCalled(t, "XAdd", mock.Anything, mock.Anything)
}
