package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/billsplit-backend/internal/domain"
)

// MockChannel is a mock implementation of the AMQP channel for testing
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := new(MockChannel)
	ch.On("ExchangeDeclare", "ledger", "direct", true, false, false, false, amqp091.Table(nil)).Return(nil)

	p, err := newAMQPPublisher(ch, "ledger", nil)
	require.NoError(t, err)

	event := domain.LedgerEvent{
		Type:       domain.EventExpenseCreated,
		GroupID:    "g1",
		ExpenseID:  "e1",
		OccurredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	ch.On("PublishWithContext", mock.Anything, "ledger", "expense.created", false, false,
		mock.MatchedBy(func(msg amqp091.Publishing) bool {
			var decoded domain.LedgerEvent
			if err := json.Unmarshal(msg.Body, &decoded); err != nil {
				return false
			}
			return msg.ContentType == "application/json" &&
				msg.DeliveryMode == amqp091.Persistent &&
				decoded.GroupID == "g1" &&
				decoded.ExpenseID == "e1"
		}),
	).Return(nil)

	err = p.Publish(context.Background(), event)

	assert.NoError(t, err)
	ch.AssertExpectations(t)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	ch := new(MockChannel)
	ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	brokerErr := errors.New("channel closed")
	ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(brokerErr)

	p, err := newAMQPPublisher(ch, "ledger", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), domain.LedgerEvent{Type: domain.EventGroupDeleted, GroupID: "g1"})

	assert.ErrorIs(t, err, brokerErr)
}

func TestNewAMQPPublisher_DeclareFails(t *testing.T) {
	ch := new(MockChannel)
	ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("access refused"))
	ch.On("Close").Return(nil)

	p, err := newAMQPPublisher(ch, "ledger", nil)

	assert.Nil(t, p)
	assert.Error(t, err)
	ch.AssertCalled(t, "Close")
}

func TestNoopPublisher(t *testing.T) {
	var p domain.EventPublisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), domain.LedgerEvent{Type: domain.EventExpenseDeleted}))
}
