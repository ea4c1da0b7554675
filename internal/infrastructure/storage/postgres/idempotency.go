package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// IdempotencyRecord stores the outcome of an idempotent HTTP request.
// This is transport-level replay protection; the ledger's own per-detail
// idempotence holds regardless of whether callers send keys.
type IdempotencyRecord struct {
	Key         string            `db:"idempotency_key"`
	CallerID    string            `db:"caller_id"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
}

// IdempotencyReplay is the cached HTTP response for replay.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore manages idempotency keys.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
	}
}

// AcquireKey attempts to acquire an idempotency key.
// Returns:
//   - (nil, nil) if key acquired successfully
//   - (cachedResponse, nil) if operation already completed (success or failed)
//   - (nil, error) if key is locked by another in-flight request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, callerID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)

	var record IdempotencyRecord
	err := s.txManager.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_idempotency (idempotency_key, caller_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			updated_at = $6,
			expires_at = GREATEST(sys_idempotency.expires_at, $7)
		RETURNING idempotency_key, caller_id, operation, status, request_hash, response, response_status, response_content_type, created_at, updated_at, expires_at
	`, key, callerID, operation, IdempotencyStatusPending, requestHash, now, expiresAt).Scan(
		&record.Key, &record.CallerID, &record.Operation, &record.Status,
		&record.RequestHash, &record.Response, &record.StatusCode, &record.ContentType,
		&record.CreatedAt, &record.UpdatedAt, &record.ExpiresAt,
	)

	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	// Key was just created by us
	if record.CreatedAt.Equal(now) || record.CreatedAt.After(now.Add(-time.Second)) {
		return nil, nil
	}

	// Key exists: protect against reuse for a different request.
	if record.CallerID != callerID || record.Operation != operation || record.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", record.Operation).
			WithDetail("request_operation", operation)
	}

	switch record.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return &IdempotencyReplay{
			StatusCode:  normalizeReplayStatus(record.StatusCode),
			ContentType: normalizeReplayContentType(record.ContentType),
			Body:        record.Response,
		}, nil

	case IdempotencyStatusPending:
		// A pending key older than a minute belongs to a crashed request;
		// reclaim it.
		if time.Since(record.UpdatedAt) > time.Minute {
			_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
				UPDATE sys_idempotency
				SET status = $1, updated_at = $2
				WHERE idempotency_key = $3 AND status = $4
			`, IdempotencyStatusPending, now, key, IdempotencyStatusPending)
			if err != nil {
				return nil, fmt.Errorf("reclaim stale key: %w", err)
			}
			return nil, nil
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}

	return nil, nil
}

// CompleteKey marks an idempotency key as completed with HTTP response.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finishKey(ctx, key, IdempotencyStatusSuccess, statusCode, contentType, response)
}

// FailKey marks an idempotency key as failed with HTTP response.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finishKey(ctx, key, IdempotencyStatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finishKey(ctx context.Context, key string, status IdempotencyStatus, statusCode int, contentType string, response any) error {
	var responseBytes []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			// Keep the key consistent even when the body cannot be encoded.
			responseBytes, _ = json.Marshal(map[string]string{"error": err.Error()})
		} else {
			responseBytes = b
		}
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE idempotency_key = $6
	`, status, responseBytes, statusCode, contentType, time.Now().UTC(), key)

	return err
}

func normalizeReplayStatus(status int) int {
	if status == 0 {
		return 200
	}
	return status
}

func normalizeReplayContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE expires_at < $1
	`, time.Now().UTC())

	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
