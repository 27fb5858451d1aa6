// Package directory resolves client display names for ledger concepts.
package directory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/cache"
	"github.com/segyhp/lending-ledger/internal/repository"
)

// DefaultPlaceholder is shown when a client cannot be resolved.
const DefaultPlaceholder = "unidentified client"

// Directory looks up the display name of a client.
type Directory interface {
	Lookup(ctx context.Context, clientID string) (string, error)
}

// SQLDirectory reads names from the clients table.
type SQLDirectory struct {
	clients repository.ClientRepository
}

func NewSQLDirectory(clients repository.ClientRepository) *SQLDirectory {
	return &SQLDirectory{clients: clients}
}

func (d *SQLDirectory) Lookup(ctx context.Context, clientID string) (string, error) {
	return d.clients.GetDisplayName(ctx, clientID)
}

// CachedDirectory serves names from a cache before falling through to next.
type CachedDirectory struct {
	next  Directory
	names cache.NameCache
}

func NewCachedDirectory(next Directory, names cache.NameCache) *CachedDirectory {
	return &CachedDirectory{next: next, names: names}
}

func (d *CachedDirectory) Lookup(ctx context.Context, clientID string) (string, error) {
	if name, ok := d.names.GetName(ctx, clientID); ok {
		return name, nil
	}

	name, err := d.next.Lookup(ctx, clientID)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(name) != "" {
		d.names.SetName(ctx, clientID, name)
	}
	return name, nil
}

// Resolver never fails: lookup errors and blank names resolve to the placeholder.
type Resolver struct {
	dir         Directory
	placeholder string
	logger      *zap.Logger
}

func NewResolver(dir Directory, placeholder string, logger *zap.Logger) *Resolver {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, placeholder: placeholder, logger: logger}
}

func (r *Resolver) DisplayName(ctx context.Context, clientID string) string {
	if r.dir == nil {
		return r.placeholder
	}

	name, err := r.dir.Lookup(ctx, clientID)
	if err != nil {
		r.logger.Warn("client lookup failed, using placeholder",
			zap.String("client_id", clientID),
			zap.Error(err),
		)
		return r.placeholder
	}

	name = strings.TrimSpace(name)
	if name == "" {
		r.logger.Warn("client has no display name, using placeholder", zap.String("client_id", clientID))
		return r.placeholder
	}

	return name
}
