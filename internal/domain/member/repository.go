package member

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Member records.
// Implementations hold a single flat collection; invariants are enforced by the caller.
type Repository interface {
	Insert(ctx context.Context, m *Member) error // Assigns m.ID; ErrDuplicateKey on cedula collision
	GetByID(ctx context.Context, id int64) (*Member, error)
	GetByCedula(ctx context.Context, cedula string) (*Member, error)
	Update(ctx context.Context, m *Member) error
	List(ctx context.Context) ([]Member, error) // Ordered by ID
	DeleteAll(ctx context.Context) error
}
