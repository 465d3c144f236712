package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	donation "donorhub/internal/donation/models"
	"donorhub/internal/platform/postgres"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
)

const donationColumns = `id, donor_id, cause_id, organization_id, contribution_type, amount, quantity, unit,
	status, receipt_image_ref, receipt_document_ref, document_number, version, created_at, updated_at,
	approved_at, received_at, confirmed_at, cancelled_at`

type donationStore struct{ conn }

// amountArgs maps the contribution payload onto the nullable columns.
func amountArgs(d *donation.Donation) (decimal.NullDecimal, sql.NullInt64) {
	if d.Type == domain.ContributionMoney {
		return decimal.NewNullDecimal(d.Amount), sql.NullInt64{}
	}
	return decimal.NullDecimal{}, sql.NullInt64{Int64: d.Quantity, Valid: true}
}

func (s donationStore) Create(ctx context.Context, d *donation.Donation) error {
	amount, quantity := amountArgs(d)
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO donations (`+donationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		d.ID.String(), d.DonorID.String(), d.CauseID.String(), d.OrganizationID.String(), string(d.Type),
		amount, quantity, d.Unit, string(d.Status), d.ReceiptImageRef, d.ReceiptDocumentRef, d.DocumentNumber,
		d.Version, d.CreatedAt, d.UpdatedAt,
		nullTime(d.ApprovedAt), nullTime(d.ReceivedAt), nullTime(d.ConfirmedAt), nullTime(d.CancelledAt),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return storage.ErrAlreadyUsed
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (s donationStore) Get(ctx context.Context, id domain.DonationID) (*donation.Donation, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id.String())
	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get donation: %w", err)
	}
	return d, nil
}

// Update is a compare-and-set on version: zero rows means either the
// donation is gone or another writer got there first.
func (s donationStore) Update(ctx context.Context, d *donation.Donation, expectedVersion int64) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE donations SET
			status = $3, receipt_image_ref = $4, receipt_document_ref = $5, document_number = $6,
			version = $7, updated_at = $8, approved_at = $9, received_at = $10, confirmed_at = $11,
			cancelled_at = $12
		WHERE id = $1 AND version = $2`,
		d.ID.String(), expectedVersion, string(d.Status), d.ReceiptImageRef, d.ReceiptDocumentRef,
		d.DocumentNumber, d.Version, d.UpdatedAt,
		nullTime(d.ApprovedAt), nullTime(d.ReceivedAt), nullTime(d.ConfirmedAt), nullTime(d.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM donations WHERE id = $1)`, d.ID.String(),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check donation: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

func (s donationStore) List(ctx context.Context, f storage.DonationFilter) ([]*donation.Donation, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.DonorID != nil {
		where = append(where, "donor_id = "+arg(f.DonorID.String()))
	}
	if f.OrganizationID != nil {
		where = append(where, "organization_id = "+arg(f.OrganizationID.String()))
	}
	if f.CauseID != nil {
		where = append(where, "cause_id = "+arg(f.CauseID.String()))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(pq.Array(statuses))+")")
	}
	if !f.CreatedFrom.IsZero() {
		where = append(where, "created_at >= "+arg(f.CreatedFrom))
	}
	if !f.CreatedTo.IsZero() {
		where = append(where, "created_at < "+arg(f.CreatedTo))
	}

	query := `SELECT ` + donationColumns + ` FROM donations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	out := make([]*donation.Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s donationStore) CountOpen(ctx context.Context, causeID domain.CauseID) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM donations WHERE cause_id = $1 AND status <> $2`,
		causeID.String(), string(donation.StatusCancelled),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open donations: %w", err)
	}
	return n, nil
}

func (s donationStore) DistinctDonors(ctx context.Context, causeID domain.CauseID) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT count(DISTINCT donor_id) FROM donations WHERE cause_id = $1 AND status <> $2`,
		causeID.String(), string(donation.StatusCancelled),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count donors: %w", err)
	}
	return n, nil
}

// Rollup groups in SQL; month buckets are computed in UTC.
func (s donationStore) Rollup(ctx context.Context, q storage.RollupQuery) ([]storage.RollupRow, error) {
	var (
		where = []string{"status IN ('RECEIVED', 'CONFIRMED')", "received_at IS NOT NULL"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.CauseID != nil {
		where = append(where, "cause_id = "+arg(q.CauseID.String()))
	}
	if q.OrganizationID != nil {
		where = append(where, "organization_id = "+arg(q.OrganizationID.String()))
	}
	if q.Type != nil {
		where = append(where, "contribution_type = "+arg(string(*q.Type)))
	}
	if !q.ReceivedFrom.IsZero() {
		where = append(where, "received_at >= "+arg(q.ReceivedFrom))
	}
	if !q.ReceivedTo.IsZero() {
		where = append(where, "received_at < "+arg(q.ReceivedTo))
	}

	month, cause, org := "NULL::timestamptz", "NULL::uuid", "NULL::uuid"
	groups := []string{"contribution_type"}
	if q.GroupBy.Month {
		month = "date_trunc('month', received_at AT TIME ZONE 'UTC') AT TIME ZONE 'UTC'"
		groups = append(groups, "1")
	}
	if q.GroupBy.Cause {
		cause = "cause_id"
		groups = append(groups, "cause_id")
	}
	if q.GroupBy.Organization {
		org = "organization_id"
		groups = append(groups, "organization_id")
	}

	query := fmt.Sprintf(`
		SELECT %s AS month, %s AS cause_id, %s AS organization_id, contribution_type,
			count(*), COALESCE(sum(amount), 0), COALESCE(sum(quantity), 0)
		FROM donations
		WHERE %s
		GROUP BY %s
		ORDER BY 1 NULLS FIRST, 2 NULLS FIRST, 3 NULLS FIRST, 4`,
		month, cause, org, strings.Join(where, " AND "), strings.Join(groups, ", "))

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rollup donations: %w", err)
	}
	defer rows.Close()

	out := make([]storage.RollupRow, 0)
	for rows.Next() {
		var (
			row      storage.RollupRow
			monthVal sql.NullTime
			causeID  uuid.NullUUID
			orgID    uuid.NullUUID
			typ      string
		)
		if err := rows.Scan(&monthVal, &causeID, &orgID, &typ, &row.Count, &row.Amount, &row.Quantity); err != nil {
			return nil, fmt.Errorf("scan rollup: %w", err)
		}
		if monthVal.Valid {
			row.Month = monthVal.Time.UTC()
		}
		if causeID.Valid {
			row.CauseID = domain.CauseID(causeID.UUID)
		}
		if orgID.Valid {
			row.OrganizationID = domain.OrganizationID(orgID.UUID)
		}
		row.Type = domain.ContributionType(typ)
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanDonation(row scanner) (*donation.Donation, error) {
	var (
		d           donation.Donation
		typ, status string
		amount      decimal.NullDecimal
		quantity    sql.NullInt64
	)
	var approved, received, confirmed, cancelled sql.NullTime
	if err := row.Scan(
		(*uuid.UUID)(&d.ID), (*uuid.UUID)(&d.DonorID), (*uuid.UUID)(&d.CauseID), (*uuid.UUID)(&d.OrganizationID),
		&typ, &amount, &quantity, &d.Unit, &status, &d.ReceiptImageRef, &d.ReceiptDocumentRef,
		&d.DocumentNumber, &d.Version, &d.CreatedAt, &d.UpdatedAt,
		&approved, &received, &confirmed, &cancelled,
	); err != nil {
		return nil, err
	}
	d.Type = domain.ContributionType(typ)
	d.Status = donation.Status(status)
	d.Amount = decimal.Zero
	if amount.Valid {
		d.Amount = amount.Decimal
	}
	d.Quantity = quantity.Int64
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	d.ApprovedAt = timePtr(approved)
	d.ReceivedAt = timePtr(received)
	d.ConfirmedAt = timePtr(confirmed)
	d.CancelledAt = timePtr(cancelled)
	return &d, nil
}
