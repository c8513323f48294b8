package app

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"gift_delivery_bot/internal/domain/member"

	"github.com/sirupsen/logrus"
)

var ErrEmptySearchTerm = errors.New("search term must not be empty")

// Updates maps edited fields to their new textual values.
type Updates map[member.Field]string

// RosterService owns the roster and keeps the member invariants after every operation.
// Operations are serialized; callers may share one instance between front ends.
type RosterService struct {
	mu     sync.Mutex
	repo   member.Repository
	now    func() time.Time
	logger *logrus.Entry
}

func NewRosterService(repo member.Repository, logger *logrus.Entry) *RosterService {
	return &RosterService{
		repo:   repo,
		now:    time.Now,
		logger: logger.WithField("component", "roster"),
	}
}

// WithClock replaces the time source used for delivery stamps.
func (s *RosterService) WithClock(now func() time.Time) *RosterService {
	s.now = now
	return s
}

// Import validates the source header against cols and commits every valid row.
// A missing required column fails the whole import with a SchemaError and nothing is written.
// Invalid or duplicate rows are rejected individually.
func (s *RosterService) Import(ctx context.Context, src Source, cols ColumnMap) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, err := resolveColumns(src, cols)
	if err != nil {
		s.logger.WithError(err).Warn("Import rejected: schema mismatch")
		return ImportResult{}, err
	}

	result := ImportResult{Total: len(src.Rows)}
	for i, row := range src.Rows {
		rowNum := i + 2
		m, err := memberFromRow(row, resolved)
		if err == nil {
			err = s.insertUnique(ctx, &m)
		}
		if err != nil {
			if member.Kind(err) == "" {
				return result, fmt.Errorf("import row %d: %w", rowNum, err)
			}
			s.logger.WithFields(logrus.Fields{"row": rowNum, "cedula": m.Cedula}).WithError(err).Debug("Import row rejected")
			result.Rejected = append(result.Rejected, RejectedRow{Row: rowNum, Cedula: m.Cedula, Err: err})
			continue
		}
		result.Imported++
	}

	s.logger.WithFields(logrus.Fields{
		"total":    result.Total,
		"imported": result.Imported,
		"rejected": len(result.Rejected),
	}).Info("Roster import finished")
	return result, nil
}

// Add creates a single record entered by hand.
func (s *RosterService) Add(ctx context.Context, m member.Member, actor string) (*member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = 0
	trimFields(&m)
	if m.Status == "" {
		m.Status = member.StatusPending
	}
	if m.Status == member.StatusDelivered && m.DeliveredAt == nil {
		at := s.now()
		m.DeliveredAt = &at
		if m.DeliveredBy == "" {
			m.DeliveredBy = strings.TrimSpace(actor)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.insertUnique(ctx, &m); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"member_id": m.ID, "actor": actor}).Info("Member added")
	return &m, nil
}

func (s *RosterService) insertUnique(ctx context.Context, m *member.Member) error {
	_, err := s.repo.GetByCedula(ctx, m.Cedula)
	if err == nil {
		return member.ErrDuplicateKey
	}
	if !errors.Is(err, member.ErrNotFound) {
		return fmt.Errorf("failed to check existing cedula: %w", err)
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		if errors.Is(err, member.ErrDuplicateKey) {
			return member.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// Get returns the record with the given id.
func (s *RosterService) Get(ctx context.Context, id int64) (*member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.GetByID(ctx, id)
}

// FindByCedula returns the record holding exactly this cedula.
func (s *RosterService) FindByCedula(ctx context.Context, cedula string) (*member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.GetByCedula(ctx, strings.TrimSpace(cedula))
}

// All returns a snapshot of the roster in canonical order.
func (s *RosterService) All(ctx context.Context) ([]member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(ctx)
}

func (s *RosterService) snapshot(ctx context.Context) ([]member.Member, error) {
	members, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// Search matches term case-insensitively against the cedula or the joined name parts.
// The returned sequence is evaluated lazily over a snapshot and may be ranged over repeatedly.
func (s *RosterService) Search(ctx context.Context, term string) (iter.Seq[member.Member], error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, ErrEmptySearchTerm
	}
	members, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return matching(members, func(m member.Member) bool {
		return strings.Contains(strings.ToLower(m.Cedula), needle) ||
			strings.Contains(strings.ToLower(m.SearchText()), needle)
	}), nil
}

// Filter selects records by kind from a snapshot; the roster is never modified.
func (s *RosterService) Filter(ctx context.Context, kind member.FilterKind) (iter.Seq[member.Member], error) {
	return s.FilterBy(ctx, member.Criteria{Kind: kind})
}

// FilterBy selects records matching both the kind and the agency of c.
func (s *RosterService) FilterBy(ctx context.Context, c member.Criteria) (iter.Seq[member.Member], error) {
	members, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return matching(members, c.Matches), nil
}

func matching(members []member.Member, keep func(member.Member) bool) iter.Seq[member.Member] {
	return func(yield func(member.Member) bool) {
		for _, m := range members {
			if keep(m) && !yield(m) {
				return
			}
		}
	}
}

// MarkDelivered stamps the record as delivered now by actor.
// A record that is already delivered is reported with ErrAlreadyDelivered and left untouched.
func (s *RosterService) MarkDelivered(ctx context.Context, id int64, actor string) (*member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.MarkDelivered(actor, s.now()); err != nil {
		return m, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save delivery: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"member_id": m.ID,
		"cedula":    m.Cedula,
		"actor":     m.DeliveredBy,
	}).Info("Gift delivered")
	return m, nil
}

// Edit applies field updates to one record.
// Moving status to DELIVERED stamps delivered_at with now unless supplied, and delivered_by
// with actor unless supplied. Moving back to PENDING clears the stamp. A stamp supplied
// without the move to DELIVERED is rejected.
func (s *RosterService) Edit(ctx context.Context, id int64, updates Updates, actor string) (*member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *current

	var (
		newStatus   member.Status
		stampAt     *time.Time
		stampAtSet  bool
		stampBy     string
		stampBySet  bool
		unknownKeys []string
	)
	for field, value := range updates {
		switch field {
		case member.FieldCedula:
			next.Cedula = strings.TrimSpace(value)
		case member.FieldNameFirst:
			next.NameFirst = strings.TrimSpace(value)
		case member.FieldNameSecond:
			next.NameSecond = strings.TrimSpace(value)
		case member.FieldSurnameFirst:
			next.SurnameFirst = strings.TrimSpace(value)
		case member.FieldSurnameSecond:
			next.SurnameSecond = strings.TrimSpace(value)
		case member.FieldAgency:
			next.Agency = strings.TrimSpace(value)
		case member.FieldCompany:
			next.Company = strings.TrimSpace(value)
		case member.FieldNotes:
			next.Notes = value
		case member.FieldStatus:
			st, err := member.ParseStatus(value)
			if err != nil {
				return nil, err
			}
			newStatus = st
		case member.FieldDeliveredAt:
			stampAtSet = true
			if strings.TrimSpace(value) != "" {
				at, err := member.ParseTimestamp(value)
				if err != nil {
					return nil, err
				}
				stampAt = &at
			}
		case member.FieldDeliveredBy:
			stampBySet = true
			stampBy = strings.TrimSpace(value)
		default:
			unknownKeys = append(unknownKeys, string(field))
		}
	}
	if len(unknownKeys) > 0 {
		slices.Sort(unknownKeys)
		return nil, &member.ValidationError{Fields: unknownKeys, Message: "fields are not editable"}
	}

	switch {
	case newStatus == member.StatusDelivered && current.Status != member.StatusDelivered:
		at := s.now()
		if stampAt != nil {
			at = *stampAt
		}
		by := strings.TrimSpace(actor)
		if stampBySet {
			by = stampBy
		}
		if err := next.MarkDelivered(by, at); err != nil {
			return nil, err
		}
	case newStatus == member.StatusPending && current.Status == member.StatusDelivered:
		next.ResetDelivery()
		if stampAt != nil || stampBy != "" {
			return nil, &member.ValidationError{
				Fields:  []string{string(member.FieldDeliveredAt), string(member.FieldDeliveredBy)},
				Message: "delivery stamp cannot be set while reverting to PENDING",
			}
		}
	default:
		if stampAtSet || stampBySet {
			return nil, &member.ValidationError{
				Fields:  []string{string(member.FieldDeliveredAt), string(member.FieldDeliveredBy)},
				Message: "delivery stamp can only be set together with a move to DELIVERED",
			}
		}
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}

	if next.Cedula != current.Cedula {
		other, err := s.repo.GetByCedula(ctx, next.Cedula)
		if err == nil && other.ID != next.ID {
			return nil, member.ErrDuplicateKey
		}
		if err != nil && !errors.Is(err, member.ErrNotFound) {
			return nil, fmt.Errorf("failed to check existing cedula: %w", err)
		}
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		if errors.Is(err, member.ErrDuplicateKey) || errors.Is(err, member.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save member: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"member_id": next.ID,
		"fields":    len(updates),
		"status":    next.Status,
		"actor":     actor,
	}).Info("Member edited")
	return &next, nil
}

// Statistics recomputes aggregate counts from the current roster.
func (s *RosterService) Statistics(ctx context.Context) (member.Statistics, error) {
	members, err := s.All(ctx)
	if err != nil {
		return member.Statistics{}, err
	}
	return member.Tally(members), nil
}

// AgencySummary reports delivery progress per agency, ordered by agency name.
func (s *RosterService) AgencySummary(ctx context.Context) ([]member.AgencyStats, error) {
	members, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return member.TallyByAgency(members), nil
}

// History lists delivered records ordered by delivery time.
func (s *RosterService) History(ctx context.Context) ([]member.Member, error) {
	seq, err := s.Filter(ctx, member.FilterDelivered)
	if err != nil {
		return nil, err
	}
	delivered := slices.Collect(seq)
	slices.SortStableFunc(delivered, func(a, b member.Member) int {
		return a.DeliveredAt.Compare(*b.DeliveredAt)
	})
	return delivered, nil
}

// Clear removes every record. It cannot be undone.
func (s *RosterService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear roster: %w", err)
	}
	s.logger.Warn("Roster cleared")
	return nil
}

func trimFields(m *member.Member) {
	for _, f := range []*string{&m.Cedula, &m.NameFirst, &m.NameSecond, &m.SurnameFirst, &m.SurnameSecond, &m.Agency, &m.Company, &m.DeliveredBy} {
		*f = strings.TrimSpace(*f)
	}
}
