package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"buildcost/core/state"
	"buildcost/internal/logging"
)

func openTemp(t *testing.T) (*Backend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	b, err := Open(path, logging.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return b, path
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	b, _ := openTemp(t)
	defer b.Close()

	if _, found, err := b.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("expected absent without error, got found=%v err=%v", found, err)
	}

	if err := b.Put(ctx, "k", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := b.Put(ctx, "k", []byte(`{"a":2}`)); err != nil {
		t.Fatal(err)
	}
	got, found, err := b.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("expected value, found=%v err=%v", found, err)
	}
	if string(got) != `{"a":2}` {
		t.Errorf("expected overwritten value, got %s", got)
	}

	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := b.Get(ctx, "k"); found {
		t.Error("expected key to be deleted")
	}
}

func TestDeletePrefix(t *testing.T) {
	ctx := context.Background()
	b, _ := openTemp(t)
	defer b.Close()

	for _, k := range []string{"app:a", "app:b", "other:c"} {
		if err := b.Put(ctx, k, []byte("1")); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.DeletePrefix(ctx, "app:"); err != nil {
		t.Fatal(err)
	}

	keys, err := b.Keys(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"other:c"}) {
		t.Errorf("expected only other:c to remain, got %v", keys)
	}
}

func TestNonASCIIPrefix(t *testing.T) {
	ctx := context.Background()
	b, _ := openTemp(t)
	defer b.Close()

	for _, k := range []string{"chantier-é:slab", "chantier-é:roof", "chantier-e:wall", "bau:slab"} {
		if err := b.Put(ctx, k, []byte("1")); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := b.Keys(ctx, "chantier-é:")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"chantier-é:roof", "chantier-é:slab"}) {
		t.Fatalf("expected both chantier-é keys, got %v", keys)
	}

	if err := b.DeletePrefix(ctx, "chantier-é:"); err != nil {
		t.Fatal(err)
	}
	keys, err = b.Keys(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"bau:slab", "chantier-e:wall"}) {
		t.Errorf("expected only unrelated keys to remain, got %v", keys)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	b, path := openTemp(t)

	store := state.NewStore(b, state.DefaultPrefix, logging.NewNop())
	value := map[string]any{"volume": 2.593, "trucks": 1.0}
	if !store.Save(ctx, "concrete-slab-pro", value) {
		t.Fatal("save failed")
	}
	b.Close()

	reopened, err := Open(path, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	store = state.NewStore(reopened, state.DefaultPrefix, logging.NewNop())
	var got map[string]any
	if !store.Load(ctx, "concrete-slab-pro", &got) {
		t.Fatal("expected value after reopen")
	}
	if !reflect.DeepEqual(got, value) {
		t.Errorf("got %v, want %v", got, value)
	}
}
