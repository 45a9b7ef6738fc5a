package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/chatvault/chatvault/internal/model"
	"github.com/chatvault/chatvault/pkg/logger"
)

func TestBoltRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")

	b, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	if _, found, err := b.Get(ctx, "missing"); err != nil || found {
		t.Errorf("empty db Get = found %v, err %v", found, err)
	}

	want := json.RawMessage(`{"a":1}`)
	if err := b.Set(ctx, map[string]json.RawMessage{"k": want}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, found, err := b.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("get: found %v, err %v", found, err)
	}
	if string(got) != string(want) {
		t.Errorf("got %s, want %s", got, want)
	}

	all, err := b.GetAll(ctx)
	if err != nil {
		t.Fatalf("getAll: %v", err)
	}
	if len(all) != 1 || string(all["k"]) != string(want) {
		t.Errorf("namespace = %v", all)
	}
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")

	b, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := New(b, 0, logger.NewNop())
	saved, err := s.SaveConversation(ctx, model.Conversation{Title: "durable", Provider: "claude"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b2, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b2.Close()

	s2 := New(b2, 0, logger.NewNop())
	got, err := s2.GetConversation(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Title != "durable" || got.Provider != "claude" {
		t.Errorf("record changed across reopen: %+v", got)
	}
}

func TestBoltCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "vault.db")
	b, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("open with missing parent: %v", err)
	}
	b.Close()
}
