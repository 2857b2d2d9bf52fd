package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	src := newSeededStore(t)
	ctx := context.Background()

	if _, err := src.CreateUser(ctx, CreateUserParams{Username: "ref_zed", Password: "rrsa"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	blob, err := src.ExportJSON(ctx)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	dst := newSeededStore(t)
	if err := dst.Import(ctx, blob); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := dst.GetUserByUsername(ctx, "ref_zed"); err != nil {
		t.Fatalf("imported user missing: %v", err)
	}
}

func TestImportRejectsWrongVersion(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	blob, err := s.ExportJSON(ctx)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(blob, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	doc["_meta"] = json.RawMessage(`{"version": 3}`)
	bad, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := s.Import(ctx, bad); !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestImportRejectsMalformedShapes(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{oops`},
		{"no meta", `{"users":[],"attendance":[],"performance":[]}`},
		{"users not array", `{"_meta":{"version":12},"users":{},"attendance":[],"performance":[]}`},
		{"missing attendance", `{"_meta":{"version":12},"users":[]}`},
	}
	for _, tc := range cases {
		if err := s.Import(ctx, []byte(tc.raw)); !errors.Is(err, ErrSchema) {
			t.Fatalf("%s: err = %v, want ErrSchema", tc.name, err)
		}
	}

	// A rejected import leaves the document untouched.
	if _, err := s.GetUserByUsername(ctx, "mrv"); err != nil {
		t.Fatalf("document damaged by rejected import: %v", err)
	}
}

func TestImportDefaultsOptionalSections(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	minimal := `{"_meta":{"version":12},"users":[],"attendance":[],"performance":[]}`
	if err := s.Import(ctx, []byte(minimal)); err != nil {
		t.Fatalf("Import: %v", err)
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if len(settings.Leagues) == 0 || settings.AuthPolicy.MaxFailedAttempts == 0 {
		t.Fatalf("optional sections not defaulted: %+v", settings)
	}
}
