package blacklist

import (
	"context"
	"testing"

	"github.com/dvloznov/exchange-desk/internal/store/inmemory"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	r := New(inmemory.NewStore())

	if bl, _ := r.IsBlacklisted(ctx, "42"); bl {
		t.Fatal("new registry reports 42 as blacklisted")
	}
	if err := r.Add(ctx, "42"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if bl, _ := r.IsBlacklisted(ctx, "42"); !bl {
		t.Error("42 not blacklisted after Add")
	}
	if bl, _ := r.IsBlacklisted(ctx, "43"); bl {
		t.Error("43 blacklisted without Add")
	}
	if err := r.Remove(ctx, "42"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if bl, _ := r.IsBlacklisted(ctx, "42"); bl {
		t.Error("42 still blacklisted after Remove")
	}
}

func TestRegistry_AddRequiresID(t *testing.T) {
	r := New(inmemory.NewStore())
	if err := r.Add(context.Background(), ""); err == nil {
		t.Error("Add(\"\") succeeded, want error")
	}
}
