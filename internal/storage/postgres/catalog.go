package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/platform/postgres"
	"donorhub/internal/storage"
	"donorhub/pkg/domain"
)

const causeColumns = `id, organization_id, title, description, tags, target_amount, raised_amount,
	donor_count, accepted_types, active, created_at, updated_at`

type causeStore struct{ conn }

func (s causeStore) Create(ctx context.Context, c *catalog.Cause) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO causes (`+causeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID.String(), c.OrganizationID.String(), c.Title, c.Description, pq.Array(c.Tags),
		c.TargetAmount, c.RaisedAmount, c.DonorCount, typesArray(c.AcceptedTypes), c.Active,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return storage.ErrAlreadyUsed
		}
		return fmt.Errorf("insert cause: %w", err)
	}
	return nil
}

func (s causeStore) Get(ctx context.Context, id domain.CauseID) (*catalog.Cause, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+causeColumns+` FROM causes WHERE id = $1`, id.String())
	c, err := scanCause(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cause: %w", err)
	}
	return c, nil
}

func (s causeStore) Update(ctx context.Context, c *catalog.Cause) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE causes SET
			title = $2, description = $3, tags = $4, target_amount = $5, raised_amount = $6,
			donor_count = $7, accepted_types = $8, active = $9, updated_at = $10
		WHERE id = $1`,
		c.ID.String(), c.Title, c.Description, pq.Array(c.Tags), c.TargetAmount, c.RaisedAmount,
		c.DonorCount, typesArray(c.AcceptedTypes), c.Active, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update cause: %w", err)
	}
	return expectOneRow(res)
}

// Delete relies on ON DELETE CASCADE for associations and donations.
func (s causeStore) Delete(ctx context.Context, id domain.CauseID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM causes WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete cause: %w", err)
	}
	return expectOneRow(res)
}

func (s causeStore) List(ctx context.Context, f storage.CauseFilter) ([]*catalog.Cause, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.OrganizationID != nil {
		where = append(where, "organization_id = "+arg(f.OrganizationID.String()))
	}
	if f.ActiveOnly {
		where = append(where, "active")
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		where = append(where, arg(tag)+" = ANY(tags)")
	}
	if f.Type != "" {
		where = append(where, arg(string(f.Type))+" = ANY(accepted_types)")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "title ILIKE "+arg("%"+escapeLike(q)+"%"))
	}

	query := `SELECT ` + causeColumns + ` FROM causes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list causes: %w", err)
	}
	defer rows.Close()

	out := make([]*catalog.Cause, 0)
	for rows.Next() {
		c, err := scanCause(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cause: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCause(row scanner) (*catalog.Cause, error) {
	var (
		c     catalog.Cause
		tags  []string
		types []string
	)
	if err := row.Scan(
		(*uuid.UUID)(&c.ID), (*uuid.UUID)(&c.OrganizationID), &c.Title, &c.Description, pq.Array(&tags),
		&c.TargetAmount, &c.RaisedAmount, &c.DonorCount, pq.Array(&types), &c.Active,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	c.Tags = tags
	c.AcceptedTypes = scanTypes(types)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

const campaignColumns = `id, organization_ids, title, description, start_date, end_date, status,
	auto_start, accepted_types, target_amount, raised_amount, created_at, updated_at`

type campaignStore struct{ conn }

func organizationArray(ids []domain.OrganizationID) any {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}

func (s campaignStore) Create(ctx context.Context, c *catalog.Campaign) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID.String(), organizationArray(c.OrganizationIDs), c.Title, c.Description, c.StartDate, c.EndDate,
		string(c.Status), c.AutoStart, typesArray(c.AcceptedTypes), c.TargetAmount, c.RaisedAmount,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return storage.ErrAlreadyUsed
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (s campaignStore) Get(ctx context.Context, id domain.CampaignID) (*catalog.Campaign, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id.String())
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (s campaignStore) Update(ctx context.Context, c *catalog.Campaign) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE campaigns SET
			organization_ids = $2, title = $3, description = $4, start_date = $5, end_date = $6,
			status = $7, auto_start = $8, accepted_types = $9, target_amount = $10,
			raised_amount = $11, updated_at = $12
		WHERE id = $1`,
		c.ID.String(), organizationArray(c.OrganizationIDs), c.Title, c.Description, c.StartDate, c.EndDate,
		string(c.Status), c.AutoStart, typesArray(c.AcceptedTypes), c.TargetAmount, c.RaisedAmount,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return expectOneRow(res)
}

func (s campaignStore) List(ctx context.Context, f storage.CampaignFilter) ([]*catalog.Campaign, error) {
	var (
		where []string
		args  []any
	)
	if f.OrganizationID != nil {
		args = append(args, f.OrganizationID.String())
		where = append(where, fmt.Sprintf("$%d = ANY(organization_ids)", len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, id"

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	out := make([]*catalog.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s campaignStore) ListByCauses(ctx context.Context, causeIDs []domain.CauseID) (map[domain.CauseID][]*catalog.Campaign, error) {
	out := make(map[domain.CauseID][]*catalog.Campaign, len(causeIDs))
	if len(causeIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(causeIDs))
	for i, id := range causeIDs {
		ids[i] = id.String()
	}

	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT cc.cause_id, `+prefixColumns("c.", campaignColumns)+`
		FROM cause_campaigns cc
		JOIN campaigns c ON c.id = cc.campaign_id
		WHERE cc.cause_id = ANY($1::uuid[])
		ORDER BY c.start_date, c.id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list campaigns by cause: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var causeID uuid.UUID
		c, err := scanCampaignWith(rows, &causeID)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out[domain.CauseID(causeID)] = append(out[domain.CauseID(causeID)], c)
	}
	return out, rows.Err()
}

func scanCampaign(row scanner) (*catalog.Campaign, error) {
	return scanCampaignWith(row)
}

// scanCampaignWith scans leading extra columns into prefix before the
// campaign columns.
func scanCampaignWith(row scanner, prefix ...any) (*catalog.Campaign, error) {
	var (
		c      catalog.Campaign
		orgs   []string
		types  []string
		status string
	)
	dest := append(prefix,
		(*uuid.UUID)(&c.ID), pq.Array(&orgs), &c.Title, &c.Description, &c.StartDate, &c.EndDate, &status,
		&c.AutoStart, pq.Array(&types), &c.TargetAmount, &c.RaisedAmount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	c.OrganizationIDs = make([]domain.OrganizationID, 0, len(orgs))
	for _, raw := range orgs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("campaign %s: bad organization id %q", c.ID, raw)
		}
		c.OrganizationIDs = append(c.OrganizationIDs, domain.OrganizationID(id))
	}
	c.Status = catalog.CampaignStatus(status)
	c.AcceptedTypes = scanTypes(types)
	c.StartDate = c.StartDate.UTC()
	c.EndDate = c.EndDate.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

type associationStore struct{ conn }

func (s associationStore) Create(ctx context.Context, a *catalog.Association) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO cause_campaigns (cause_id, campaign_id, created_at) VALUES ($1, $2, $3)`,
		a.CauseID.String(), a.CampaignID.String(), a.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return storage.ErrAlreadyUsed
		}
		return fmt.Errorf("insert association: %w", err)
	}
	return nil
}

func (s associationStore) Delete(ctx context.Context, causeID domain.CauseID, campaignID domain.CampaignID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM cause_campaigns WHERE cause_id = $1 AND campaign_id = $2`,
		causeID.String(), campaignID.String(),
	)
	if err != nil {
		return fmt.Errorf("delete association: %w", err)
	}
	return expectOneRow(res)
}

func (s associationStore) ListByCampaign(ctx context.Context, campaignID domain.CampaignID) ([]*catalog.Association, error) {
	return s.list(ctx, `campaign_id = $1`, campaignID.String())
}

func (s associationStore) ListByCause(ctx context.Context, causeID domain.CauseID) ([]*catalog.Association, error) {
	return s.list(ctx, `cause_id = $1`, causeID.String())
}

func (s associationStore) list(ctx context.Context, where string, arg string) ([]*catalog.Association, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT cause_id, campaign_id, created_at FROM cause_campaigns WHERE `+where+` ORDER BY cause_id, campaign_id`,
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	defer rows.Close()

	out := make([]*catalog.Association, 0)
	for rows.Next() {
		var a catalog.Association
		if err := rows.Scan((*uuid.UUID)(&a.CauseID), (*uuid.UUID)(&a.CampaignID), &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, &a)
	}
	return out, rows.Err()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
