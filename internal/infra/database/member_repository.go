package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gift_delivery_bot/internal/domain/member"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const memberColumns = `id, cedula, name_first, name_second, surname_first, surname_second,
	agency, company, notes, status, delivered_at, delivered_by`

// SQLMemberRepository stores the roster in a single members table.
type SQLMemberRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLMemberRepository(db *sql.DB, dialect Dialect) *SQLMemberRepository {
	return &SQLMemberRepository{db: db, dialect: dialect}
}

func (r *SQLMemberRepository) q(query string) string {
	return rebind(r.dialect, query)
}

func (r *SQLMemberRepository) Insert(ctx context.Context, m *member.Member) error {
	query := r.q(`INSERT INTO members (cedula, name_first, name_second, surname_first, surname_second,
		agency, company, notes, status, delivered_at, delivered_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		m.Cedula, m.NameFirst, m.NameSecond, m.SurnameFirst, m.SurnameSecond,
		m.Agency, m.Company, m.Notes, string(m.Status), nullTime(m), m.DeliveredBy,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return member.ErrDuplicateKey
		}
		return fmt.Errorf("error creating member: %w", err)
	}
	return nil
}

func (r *SQLMemberRepository) GetByID(ctx context.Context, id int64) (*member.Member, error) {
	query := r.q(`SELECT ` + memberColumns + ` FROM members WHERE id = ?`)
	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}
		return nil, fmt.Errorf("error getting member by ID: %w", err)
	}
	return m, nil
}

func (r *SQLMemberRepository) GetByCedula(ctx context.Context, cedula string) (*member.Member, error) {
	query := r.q(`SELECT ` + memberColumns + ` FROM members WHERE cedula = ?`)
	m, err := scanMember(r.db.QueryRowContext(ctx, query, cedula))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}
		return nil, fmt.Errorf("error getting member by cedula: %w", err)
	}
	return m, nil
}

func (r *SQLMemberRepository) Update(ctx context.Context, m *member.Member) error {
	query := r.q(`UPDATE members
		SET cedula = ?, name_first = ?, name_second = ?, surname_first = ?, surname_second = ?,
			agency = ?, company = ?, notes = ?, status = ?, delivered_at = ?, delivered_by = ?
		WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query,
		m.Cedula, m.NameFirst, m.NameSecond, m.SurnameFirst, m.SurnameSecond,
		m.Agency, m.Company, m.Notes, string(m.Status), nullTime(m), m.DeliveredBy, m.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return member.ErrDuplicateKey
		}
		return fmt.Errorf("error updating member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading updated rows: %w", err)
	}
	if n == 0 {
		return member.ErrNotFound
	}
	return nil
}

func (r *SQLMemberRepository) List(ctx context.Context) ([]member.Member, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	defer rows.Close()

	members := make([]member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning member: %w", err)
		}
		members = append(members, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func (r *SQLMemberRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM members`); err != nil {
		return fmt.Errorf("error deleting members: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*member.Member, error) {
	var (
		m           member.Member
		status      string
		deliveredAt sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Cedula, &m.NameFirst, &m.NameSecond, &m.SurnameFirst, &m.SurnameSecond,
		&m.Agency, &m.Company, &m.Notes, &status, &deliveredAt, &m.DeliveredBy)
	if err != nil {
		return nil, err
	}
	m.Status = member.Status(status)
	if deliveredAt.Valid {
		at := deliveredAt.Time
		m.DeliveredAt = &at
	}
	return &m, nil
}

func nullTime(m *member.Member) sql.NullTime {
	if m.DeliveredAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *m.DeliveredAt, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
