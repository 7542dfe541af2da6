package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/models"
)

// PostgresPaymentStore persists payments in Postgres. Status transitions are
// conditional UPDATEs on the expected current status, so a lost race simply
// reports zero rows affected instead of overwriting a newer state.
type PostgresPaymentStore struct {
	db *sql.DB
}

func NewPostgresPaymentStore(db *sql.DB) *PostgresPaymentStore {
	return &PostgresPaymentStore{db: db}
}

func (s *PostgresPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, course_id, method, amount, currency, user_id, source_address, status, amount_zar, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Request.CourseID, string(p.Request.Method), p.Request.Amount.String(),
		p.Request.Currency, p.Request.UserID, p.Request.SourceAddress,
		string(p.Status), p.AmountZAR.String(), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving payment: %w", err)
	}
	return nil
}

func (s *PostgresPaymentStore) Get(ctx context.Context, id string) (*models.Payment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, course_id, method, amount, currency, user_id, source_address, status,
		       reference, amount_zar, crypto_amount, crypto_currency, tx_hash, proof_ref,
		       download_id, created_at, confirmed_at
		FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (s *PostgresPaymentStore) FindOpenForUserCourse(ctx context.Context, userID string, courseID int, since time.Time) (*models.Payment, error) {
	if userID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, course_id, method, amount, currency, user_id, source_address, status,
		       reference, amount_zar, crypto_amount, crypto_currency, tx_hash, proof_ref,
		       download_id, created_at, confirmed_at
		FROM payments
		WHERE user_id = $1 AND course_id = $2
		  AND status IN ('pending', 'awaiting_confirmation')
		  AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1`, userID, courseID, since)
	return scanPayment(row)
}

func (s *PostgresPaymentStore) MarkAwaiting(ctx context.Context, id string, reference string, cryptoAmount decimal.Decimal, cryptoCurrency string) (bool, error) {
	var amt interface{}
	if cryptoCurrency != "" {
		amt = cryptoAmount.String()
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'awaiting_confirmation', reference = $2, crypto_amount = $3, crypto_currency = $4
		WHERE id = $1 AND status = 'pending'`,
		id, reference, amt, nullableString(cryptoCurrency))
	if err != nil {
		return false, fmt.Errorf("error updating payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *PostgresPaymentStore) Confirm(ctx context.Context, id, downloadID, txHash, proofRef string, confirmedAt time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'confirmed', download_id = $2, tx_hash = $3, proof_ref = $4, confirmed_at = $5
		WHERE id = $1 AND status = 'awaiting_confirmation'`,
		id, downloadID, nullableString(txHash), nullableString(proofRef), confirmedAt)
	if err != nil {
		return false, fmt.Errorf("error confirming payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *PostgresPaymentStore) Fail(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = 'failed'
		WHERE id = $1 AND status IN ('pending', 'awaiting_confirmation')`, id)
	if err != nil {
		return false, fmt.Errorf("error failing payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *PostgresPaymentStore) List(ctx context.Context, filter ListFilter) ([]models.Payment, error) {
	query := `
		SELECT id, course_id, method, amount, currency, user_id, source_address, status,
		       reference, amount_zar, crypto_amount, crypto_currency, tx_hash, proof_ref,
		       download_id, created_at, confirmed_at
		FROM payments WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (s *PostgresPaymentStore) RecordPayout(ctx context.Context, split *models.PayoutSplit) error {
	buckets, err := json.Marshal(split.Buckets)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payouts (payment_id, total, buckets, distributed_at)
		VALUES ($1, $2, $3, $4)`,
		split.PaymentID, split.Total.String(), buckets, split.DistributedAt)
	if err != nil {
		return fmt.Errorf("error recording payout: %w", err)
	}
	return nil
}

func (s *PostgresPaymentStore) Payouts(ctx context.Context) ([]models.PayoutSplit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_id, total, buckets, distributed_at FROM payouts ORDER BY distributed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("error listing payouts: %w", err)
	}
	defer rows.Close()

	payouts := []models.PayoutSplit{}
	for rows.Next() {
		var split models.PayoutSplit
		var total string
		var buckets []byte
		if err := rows.Scan(&split.PaymentID, &total, &buckets, &split.DistributedAt); err != nil {
			return nil, err
		}
		split.Total, err = decimal.NewFromString(total)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(buckets, &split.Buckets); err != nil {
			return nil, err
		}
		payouts = append(payouts, split)
	}
	return payouts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var method, amount, amountZAR string
	var reference, cryptoAmount, cryptoCurrency, txHash, proofRef, downloadID sql.NullString
	var confirmedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.Request.CourseID, &method, &amount, &p.Request.Currency,
		&p.Request.UserID, &p.Request.SourceAddress, &p.Status,
		&reference, &amountZAR, &cryptoAmount, &cryptoCurrency, &txHash, &proofRef,
		&downloadID, &p.CreatedAt, &confirmedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading payment: %w", err)
	}

	p.Request.Method = models.Method(method)
	if p.Request.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	if p.AmountZAR, err = decimal.NewFromString(amountZAR); err != nil {
		return nil, err
	}
	if cryptoAmount.Valid {
		if p.CryptoAmount, err = decimal.NewFromString(cryptoAmount.String); err != nil {
			return nil, err
		}
	}
	p.Reference = reference.String
	p.CryptoCurrency = cryptoCurrency.String
	p.TxHash = txHash.String
	p.ProofRef = proofRef.String
	p.DownloadID = downloadID.String
	if confirmedAt.Valid {
		t := confirmedAt.Time
		p.ConfirmedAt = &t
	}
	return &p, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// PostgresCourseStore serves the course catalog from the course table.
type PostgresCourseStore struct {
	db *sql.DB
}

func NewPostgresCourseStore(db *sql.DB) *PostgresCourseStore {
	return &PostgresCourseStore{db: db}
}

func (s *PostgresCourseStore) List(ctx context.Context) ([]models.Course, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, price, is_active, created_at, updated_at
		FROM course WHERE is_active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("error fetching courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

func (s *PostgresCourseStore) ByID(ctx context.Context, id int) (*models.Course, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, price, is_active, created_at, updated_at
		FROM course WHERE id = $1`, id)
	c, err := scanCourse(row)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresCourseStore) Create(ctx context.Context, c *models.Course) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO course (title, description, price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $5) RETURNING id`,
		c.Title, c.Description, c.Price.String(), now, now).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("error creating course: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func scanCourse(row rowScanner) (*models.Course, error) {
	var c models.Course
	var price string
	err := row.Scan(&c.ID, &c.Title, &c.Description, &price, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading course: %w", err)
	}
	if c.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	return &c, nil
}
