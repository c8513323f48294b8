// internal/infra/memory/member_repository.go
package memory

import (
	"context"
	"sync"

	"gift_delivery_bot/internal/domain/member"
)

// MemberRepository keeps the roster in process memory for the lifetime of the run.
type MemberRepository struct {
	mu       sync.RWMutex
	nextID   int64
	order    []int64
	byID     map[int64]member.Member
	byCedula map[string]int64
}

func NewMemberRepository() *MemberRepository {
	return &MemberRepository{
		nextID:   1,
		byID:     make(map[int64]member.Member),
		byCedula: make(map[string]int64),
	}
}

func (r *MemberRepository) Insert(_ context.Context, m *member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCedula[m.Cedula]; exists {
		return member.ErrDuplicateKey
	}
	m.ID = r.nextID
	r.nextID++
	r.byID[m.ID] = clone(*m)
	r.byCedula[m.Cedula] = m.ID
	r.order = append(r.order, m.ID)
	return nil
}

func (r *MemberRepository) GetByID(_ context.Context, id int64) (*member.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, member.ErrNotFound
	}
	m = clone(m)
	return &m, nil
}

func (r *MemberRepository) GetByCedula(ctx context.Context, cedula string) (*member.Member, error) {
	r.mu.RLock()
	id, ok := r.byCedula[cedula]
	r.mu.RUnlock()
	if !ok {
		return nil, member.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemberRepository) Update(_ context.Context, m *member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[m.ID]
	if !ok {
		return member.ErrNotFound
	}
	if m.Cedula != old.Cedula {
		if _, taken := r.byCedula[m.Cedula]; taken {
			return member.ErrDuplicateKey
		}
		delete(r.byCedula, old.Cedula)
		r.byCedula[m.Cedula] = m.ID
	}
	r.byID[m.ID] = clone(*m)
	return nil
}

func (r *MemberRepository) List(_ context.Context) ([]member.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]member.Member, 0, len(r.order))
	for _, id := range r.order {
		members = append(members, clone(r.byID[id]))
	}
	return members, nil
}

// DeleteAll empties the roster. Identifiers are not reused afterwards.
func (r *MemberRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = nil
	r.byID = make(map[int64]member.Member)
	r.byCedula = make(map[string]int64)
	return nil
}

// clone detaches the delivery timestamp so callers cannot mutate stored state.
func clone(m member.Member) member.Member {
	if m.DeliveredAt != nil {
		at := *m.DeliveredAt
		m.DeliveredAt = &at
	}
	return m
}
