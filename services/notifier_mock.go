package services

import (
	"context"
	"sync"
	"time"

	"github.com/lx-boutique/storefront-api/models"
)

// MockNotifier records receipts instead of sending them
type MockNotifier struct {
	mu        sync.Mutex
	sent      []models.Order
	err       error
	delivered chan struct{}
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{delivered: make(chan struct{}, 64)}
}

// SetAsMockForTesting sets this mock as the global notifier for testing
func (m *MockNotifier) SetAsMockForTesting() {
	SetNotifier(m)
}

// FailWith makes subsequent sends return err
func (m *MockNotifier) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// SendReceipt records the order
func (m *MockNotifier) SendReceipt(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	err := m.err
	if err == nil {
		m.sent = append(m.sent, *order)
	}
	m.mu.Unlock()

	select {
	case m.delivered <- struct{}{}:
	default:
	}
	return err
}

// Sent returns a copy of the recorded receipts
func (m *MockNotifier) Sent() []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Order(nil), m.sent...)
}

// WaitForSend blocks until one send attempt happened or timeout elapsed
func (m *MockNotifier) WaitForSend(timeout time.Duration) bool {
	select {
	case <-m.delivered:
		return true
	case <-time.After(timeout):
		return false
	}
}
