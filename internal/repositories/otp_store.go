package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/mkarsten/gatehouse/internal/models"
)

const otpKeyPrefix = "otp:"

// OTPStore keeps recovery codes in Redis. The TTL enforces expiry at the
// storage layer; writing a new code for an address replaces any prior
// unconsumed one, so at most one code per address is ever active.
type OTPStore struct {
	client *redis.Client
}

// NewOTPStore creates a new OTPStore
func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

// Put stores a recovery code, overwriting any existing one for the address.
func (s *OTPStore) Put(ctx context.Context, record *models.OTPRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal otp record: %w", err)
	}

	if err := s.client.Set(ctx, otpKeyPrefix+record.Address, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp record: %w", err)
	}
	return nil
}

// Get fetches the active record for an address without consuming it. Returns
// models.ErrNotFound when no record exists (or the TTL already reaped it).
func (s *OTPStore) Get(ctx context.Context, address string) (*models.OTPRecord, error) {
	payload, err := s.client.Get(ctx, otpKeyPrefix+address).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch otp record: %w", err)
	}

	var record models.OTPRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal otp record: %w", err)
	}
	return &record, nil
}

// Claim atomically fetches and deletes the record for an address. GETDEL
// makes consumption single-use even under concurrent verifications: only one
// caller observes the record.
func (s *OTPStore) Claim(ctx context.Context, address string) (*models.OTPRecord, error) {
	payload, err := s.client.GetDel(ctx, otpKeyPrefix+address).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim otp record: %w", err)
	}

	var record models.OTPRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal otp record: %w", err)
	}
	return &record, nil
}

// Delete removes the record for an address, if any.
func (s *OTPStore) Delete(ctx context.Context, address string) error {
	if err := s.client.Del(ctx, otpKeyPrefix+address).Err(); err != nil {
		return fmt.Errorf("failed to delete otp record: %w", err)
	}
	return nil
}
