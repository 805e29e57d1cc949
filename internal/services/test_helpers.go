package services

import (
	"context"
	"sync"
	"time"

	"github.com/mkarsten/gatehouse/internal/models"
)

// MockAttemptLog implements AttemptLog for testing
type MockAttemptLog struct {
	RecordFunc                       func(ctx context.Context, attempt *models.AttemptRecord) error
	CountFailuresFunc                func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error)
	MarkResetFunc                    func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int64, error)
	LastSuccessFunc                  func(ctx context.Context, accountID string) (*models.AttemptRecord, error)
	RecentTimesByIPFunc              func(ctx context.Context, originIP string, since time.Time) ([]time.Time, error)
	CountDistinctIdentifiersByIPFunc func(ctx context.Context, originIP string, since time.Time) (int, error)

	mu       sync.Mutex
	Recorded []*models.AttemptRecord
}

func (m *MockAttemptLog) Record(ctx context.Context, attempt *models.AttemptRecord) error {
	m.mu.Lock()
	m.Recorded = append(m.Recorded, attempt)
	m.mu.Unlock()
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, attempt)
	}
	return nil
}

func (m *MockAttemptLog) CountFailures(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error) {
	if m.CountFailuresFunc != nil {
		return m.CountFailuresFunc(ctx, filter, since)
	}
	return 0, nil
}

func (m *MockAttemptLog) MarkReset(ctx context.Context, filter models.AttemptFilter, since time.Time) (int64, error) {
	if m.MarkResetFunc != nil {
		return m.MarkResetFunc(ctx, filter, since)
	}
	return 0, nil
}

func (m *MockAttemptLog) LastSuccess(ctx context.Context, accountID string) (*models.AttemptRecord, error) {
	if m.LastSuccessFunc != nil {
		return m.LastSuccessFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *MockAttemptLog) RecentTimesByIP(ctx context.Context, originIP string, since time.Time) ([]time.Time, error) {
	if m.RecentTimesByIPFunc != nil {
		return m.RecentTimesByIPFunc(ctx, originIP, since)
	}
	return nil, nil
}

func (m *MockAttemptLog) CountDistinctIdentifiersByIP(ctx context.Context, originIP string, since time.Time) (int, error) {
	if m.CountDistinctIdentifiersByIPFunc != nil {
		return m.CountDistinctIdentifiersByIPFunc(ctx, originIP, since)
	}
	return 0, nil
}

// MockAccountStore implements AccountStore for testing
type MockAccountStore struct {
	FindByIdentifierFunc func(ctx context.Context, identifier string) (*models.Account, error)
	LockFunc             func(ctx context.Context, accountID string, until time.Time) error
	ClearLockFunc        func(ctx context.Context, accountID string) error
	RecordLoginFunc      func(ctx context.Context, accountID string, at time.Time, originIP, userAgent string) error

	mu           sync.Mutex
	LockedID     string
	LockedUntil  time.Time
	ClearedID    string
	LoginStamped string
}

func (m *MockAccountStore) FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	if m.FindByIdentifierFunc != nil {
		return m.FindByIdentifierFunc(ctx, identifier)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountStore) Lock(ctx context.Context, accountID string, until time.Time) error {
	m.mu.Lock()
	m.LockedID = accountID
	m.LockedUntil = until
	m.mu.Unlock()
	if m.LockFunc != nil {
		return m.LockFunc(ctx, accountID, until)
	}
	return nil
}

func (m *MockAccountStore) ClearLock(ctx context.Context, accountID string) error {
	m.mu.Lock()
	m.ClearedID = accountID
	m.mu.Unlock()
	if m.ClearLockFunc != nil {
		return m.ClearLockFunc(ctx, accountID)
	}
	return nil
}

func (m *MockAccountStore) RecordLogin(ctx context.Context, accountID string, at time.Time, originIP, userAgent string) error {
	m.mu.Lock()
	m.LoginStamped = accountID
	m.mu.Unlock()
	if m.RecordLoginFunc != nil {
		return m.RecordLoginFunc(ctx, accountID, at, originIP, userAgent)
	}
	return nil
}

// MockAlertStore implements AlertStore for testing
type MockAlertStore struct {
	CreateFunc func(ctx context.Context, alert *models.SecurityAlert) (*models.SecurityAlert, error)

	mu      sync.Mutex
	Created []*models.SecurityAlert
}

func (m *MockAlertStore) Create(ctx context.Context, alert *models.SecurityAlert) (*models.SecurityAlert, error) {
	m.mu.Lock()
	m.Created = append(m.Created, alert)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, alert)
	}
	created := *alert
	created.ID = "alert-1"
	created.Status = models.AlertStatusActive
	return &created, nil
}

// AlertsOfType returns recorded alerts matching the given type.
func (m *MockAlertStore) AlertsOfType(alertType string) []*models.SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SecurityAlert
	for _, a := range m.Created {
		if a.AlertType == alertType {
			out = append(out, a)
		}
	}
	return out
}

// MockOTPRepository implements OTPRepository with an in-memory map
type MockOTPRepository struct {
	PutFunc   func(ctx context.Context, record *models.OTPRecord, ttl time.Duration) error
	GetFunc   func(ctx context.Context, address string) (*models.OTPRecord, error)
	ClaimFunc func(ctx context.Context, address string) (*models.OTPRecord, error)

	mu      sync.Mutex
	records map[string]*models.OTPRecord
}

func NewMockOTPRepository() *MockOTPRepository {
	return &MockOTPRepository{records: make(map[string]*models.OTPRecord)}
}

func (m *MockOTPRepository) Put(ctx context.Context, record *models.OTPRecord, ttl time.Duration) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, record, ttl)
	}
	m.mu.Lock()
	m.records[record.Address] = record
	m.mu.Unlock()
	return nil
}

func (m *MockOTPRepository) Get(ctx context.Context, address string) (*models.OTPRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, address)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[address]
	if !ok {
		return nil, models.ErrNotFound
	}
	return record, nil
}

func (m *MockOTPRepository) Claim(ctx context.Context, address string) (*models.OTPRecord, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, address)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[address]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(m.records, address)
	return record, nil
}

func (m *MockOTPRepository) Delete(ctx context.Context, address string) error {
	m.mu.Lock()
	delete(m.records, address)
	m.mu.Unlock()
	return nil
}

// Stored returns the record for an address, or nil.
func (m *MockOTPRepository) Stored(address string) *models.OTPRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[address]
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	SendFunc func(ctx context.Context, address, subject, body string) error

	mu   sync.Mutex
	Sent []struct{ Address, Subject, Body string }
}

func (m *MockNotifier) Send(ctx context.Context, address, subject, body string) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, struct{ Address, Subject, Body string }{address, subject, body})
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, address, subject, body)
	}
	return nil
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	IssueFunc func(accountID, email string) (string, string, error)
}

func (m *MockTokenIssuer) Issue(accountID, email string) (string, string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(accountID, email)
	}
	return "access-token", "refresh-token", nil
}

// CapturingPublisher records published events
type CapturingPublisher struct {
	mu     sync.Mutex
	Events []SecurityEvent
}

func (p *CapturingPublisher) Publish(ctx context.Context, event SecurityEvent) error {
	p.mu.Lock()
	p.Events = append(p.Events, event)
	p.mu.Unlock()
	return nil
}

// noWait satisfies TimingGuard without sleeping
type noWait struct{}

func (noWait) WaitFrom(time.Time) {}
