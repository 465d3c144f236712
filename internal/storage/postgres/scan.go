package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"donorhub/pkg/domain"
)

func typesArray(types domain.ContributionTypes) any {
	return pq.Array(types.Strings())
}

func scanTypes(raw []string) domain.ContributionTypes {
	out := make(domain.ContributionTypes, 0, len(raw))
	for _, s := range raw {
		out = append(out, domain.ContributionType(s))
	}
	return out
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
