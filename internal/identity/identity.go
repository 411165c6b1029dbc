// Package identity resolves user IDs to principals. The bidding core trusts
// whatever this source reports.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"auction-ledger/internal/auctionerrors"
	"auction-ledger/internal/models"
)

// Directory looks up participants by ID
type Directory interface {
	Lookup(ctx context.Context, userID string) (models.Principal, error)
}

// MemoryDirectory is an in-memory Directory
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]models.Principal
}

func NewMemoryDirectory(users ...models.Principal) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[string]models.Principal)}
	for _, u := range users {
		_ = d.Register(u)
	}
	return d
}

// Register adds or replaces a principal
func (d *MemoryDirectory) Register(p models.Principal) error {
	p.UserID = strings.TrimSpace(p.UserID)
	if p.UserID == "" {
		return fmt.Errorf("identity: %w - empty user ID", auctionerrors.ErrUnknownUser)
	}
	if p.Role == "" {
		p.Role = models.RoleUser
	}
	if !p.Role.Valid() {
		return fmt.Errorf("identity: %w - role %q", auctionerrors.ErrUnknownUser, p.Role)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[p.UserID] = p
	return nil
}

func (d *MemoryDirectory) Lookup(_ context.Context, userID string) (models.Principal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.users[strings.TrimSpace(userID)]
	if !ok {
		return models.Principal{}, fmt.Errorf("identity: %w - %q", auctionerrors.ErrUnknownUser, userID)
	}
	return p, nil
}
