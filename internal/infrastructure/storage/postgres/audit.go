package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"stockledger/internal/core/appctx"
	"stockledger/internal/core/id"
)

// CompressionAlgo specifies the compression algorithm used for payloads.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one audit row: which ledger operation ran against which
// transaction detail, with the full movement payload. Large payloads
// (multi-batch allocations, bulk reversals) are stored zstd-compressed.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	TransactionDetail id.ID           `db:"transaction_detail_id"`
	Action            string          `db:"action"`
	CallerModule      string          `db:"caller_module"`
	CompanyID         string          `db:"company_id"`
	Payload           json.RawMessage `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService records ledger operations. It satisfies the ledger's
// audit sink; failures here never fail the recorded operation.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates the audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record stores one audit entry for a ledger operation.
func (s *AuditService) Record(ctx context.Context, action string, detailID id.ID, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	entry := AuditEntry{
		ID:                id.New(),
		TransactionDetail: detailID,
		Action:            action,
		Payload:           payloadJSON,
		CompressionAlgo:   CompressionNone,
		CreatedAt:         time.Now().UTC(),
	}

	if caller := appctx.GetCaller(ctx); caller != nil {
		entry.CallerModule = caller.Module
		entry.CompanyID = caller.CompanyID
	}

	if len(entry.Payload) > s.compressThreshold {
		entry.PayloadCompressed = s.encoder.EncodeAll(entry.Payload, nil)
		entry.Payload = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_audit (
			id, transaction_detail_id, action, caller_module, company_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.TransactionDetail, entry.Action,
		entry.CallerModule, entry.CompanyID,
		entry.Payload, entry.PayloadCompressed, entry.CompressionAlgo,
		entry.CreatedAt,
	)
	return err
}

// GetDetailHistory retrieves the audit trail for one transaction detail,
// newest entries first, payloads decompressed.
func (s *AuditService) GetDetailHistory(ctx context.Context, detailID id.ID, limit int) ([]AuditEntry, error) {
	sql := `
		SELECT id, transaction_detail_id, action, caller_module, company_id,
			   payload, payload_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE transaction_detail_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, detailID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.TransactionDetail, &e.Action, &e.CallerModule, &e.CompanyID,
			&e.Payload, &e.PayloadCompressed, &e.CompressionAlgo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.PayloadCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit payload: %w", err)
			}
			e.Payload = decompressed
			e.PayloadCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
