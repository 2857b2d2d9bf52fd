package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Export returns a deep copy of the whole document.
func (s *Store) Export(ctx context.Context) (*Document, error) {
	var out *Document
	err := s.View(ctx, func(doc *Document) error {
		out = doc.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExportJSON returns the document as indented JSON, suitable for download.
func (s *Store) ExportJSON(ctx context.Context) ([]byte, error) {
	doc, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import fully replaces the persisted document with the supplied snapshot.
// The snapshot must already be at the current schema version and carry the
// required record arrays; anything else is rejected with ErrSchema before a
// single byte is written. This is an irreversible overwrite and callers must
// treat it as a privileged, confirmable operation.
func (s *Store) Import(ctx context.Context, raw []byte) error {
	var probe struct {
		Meta *struct {
			Version int `json:"version"`
		} `json:"_meta"`
		Users       json.RawMessage `json:"users"`
		Attendance  json.RawMessage `json:"attendance"`
		Performance json.RawMessage `json:"performance"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("%w: invalid JSON", ErrSchema)
	}
	if probe.Meta == nil || probe.Meta.Version == 0 {
		return fmt.Errorf("%w: missing _meta.version", ErrSchema)
	}
	if probe.Meta.Version != SchemaVersion {
		return fmt.Errorf("%w: unsupported document version %d, expected %d", ErrSchema, probe.Meta.Version, SchemaVersion)
	}
	for _, section := range []struct {
		name string
		raw  json.RawMessage
	}{
		{"users", probe.Users},
		{"attendance", probe.Attendance},
		{"performance", probe.Performance},
	} {
		var arr []json.RawMessage
		if section.raw == nil || json.Unmarshal(section.raw, &arr) != nil {
			return fmt.Errorf("%w: %s must be an array", ErrSchema, section.name)
		}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: document shape invalid", ErrSchema)
	}

	// Optional sections default rather than fail.
	if len(doc.Settings.Leagues) == 0 {
		doc.Settings.Leagues = defaultLeagues()
	}
	if doc.Settings.DefaultLeague == "" {
		doc.Settings.DefaultLeague = doc.Settings.Leagues[0]
	}
	if doc.Settings.AuthPolicy == (AuthPolicy{}) {
		doc.Settings.AuthPolicy = DefaultAuthPolicy()
	}
	if doc.Invites == nil {
		doc.Invites = []Invite{}
	}
	if doc.Audit == nil {
		doc.Audit = []AuditEntry{}
	}
	if doc.Auth.Fails == nil {
		doc.Auth.Fails = map[string]LockoutRecord{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, &doc)
}
