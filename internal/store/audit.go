package store

import (
	"context"

	"rrsa.org/internal/ids"
)

// AppendAudit records an action in the append-only log, newest first.
func (s *Store) AppendAudit(ctx context.Context, actor, action, details string) (AuditEntry, error) {
	entry := AuditEntry{
		ID:      ids.New(ids.PrefixAudit),
		At:      s.Now(),
		Actor:   actor,
		Action:  action,
		Details: details,
	}
	err := s.Update(ctx, func(doc *Document) error {
		doc.PrependAudit(entry)
		return nil
	})
	if err != nil {
		return AuditEntry{}, err
	}
	return entry, nil
}

// ListAudit returns copies of audit entries, newest first. A limit of 0
// returns everything.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	var out []AuditEntry
	err := s.View(ctx, func(doc *Document) error {
		n := len(doc.Audit)
		if limit > 0 && limit < n {
			n = limit
		}
		out = make([]AuditEntry, n)
		copy(out, doc.Audit[:n])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
