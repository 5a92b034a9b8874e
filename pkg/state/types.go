package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrETagMismatch reports a Save racing a concurrent writer.
var ErrETagMismatch = errors.New("state: etag mismatch")

// ErrNotFound reports a Load for a reference that was never saved.
var ErrNotFound = errors.New("state: snapshot not found")

// Ref identifies one persisted snapshot: the owning domain (service or
// component) and a name within it, e.g. {"billing", "worker"}.
type Ref struct {
	Domain string
	Name   string
}

// Identifier returns the deterministic storage key for the reference.
func (r Ref) Identifier() (string, error) {
	domain := strings.TrimSpace(r.Domain)
	name := strings.TrimSpace(r.Name)
	if domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	if name == "" {
		return "", fmt.Errorf("state: name is required")
	}
	return domain + "/" + name, nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
// ETag changes on every Save; pass the last observed value back to Save to
// detect concurrent writers.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store persists explicit-value snapshots, the shape produced by
// Options.ToMap(false) and accepted back by Factory.Create.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot map[string]any, meta Meta, err error)
	Save(ctx context.Context, ref Ref, snapshot map[string]any, expect Meta) (Meta, error)
}
