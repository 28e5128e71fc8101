package memory

import (
	"testing"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

func TestRoomRegistryLifecycle(t *testing.T) {
	registry := NewRoomRegistry()
	room := app.NewRoom("AB12CD", "host", "Hosty", "quiz-1", nil)

	if err := registry.Create(room); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := registry.Get("AB12CD"); !ok {
		t.Fatalf("expected room present")
	}

	duplicate := app.NewRoom("AB12CD", "other", "Other", "quiz-2", nil)
	if err := registry.Create(duplicate); err != domain.ErrRoomCodeTaken {
		t.Fatalf("expected code collision error, got %v", err)
	}

	registry.Remove("AB12CD")
	if _, ok := registry.Get("AB12CD"); ok {
		t.Fatalf("expected room removed")
	}
}

func TestConnIndexBindings(t *testing.T) {
	index := NewConnIndex()

	index.Bind("conn-1", app.Binding{RoomCode: "AB12CD", UserID: "u1"})
	binding, ok := index.Resolve("conn-1")
	if !ok || binding.UserID != "u1" || binding.RoomCode != "AB12CD" {
		t.Fatalf("unexpected binding %+v ok=%v", binding, ok)
	}

	binding, ok = index.Unbind("conn-1")
	if !ok || binding.UserID != "u1" {
		t.Fatalf("expected unbind to return the binding, got %+v ok=%v", binding, ok)
	}
	if _, ok := index.Resolve("conn-1"); ok {
		t.Fatalf("expected binding cleared")
	}
	if _, ok := index.Unbind("conn-1"); ok {
		t.Fatalf("expected second unbind to miss")
	}
}

func TestConnIndexUnbindRoom(t *testing.T) {
	index := NewConnIndex()

	index.Bind("conn-1", app.Binding{RoomCode: "AB12CD", UserID: "u1"})
	index.Bind("conn-2", app.Binding{RoomCode: "AB12CD", UserID: "u2"})
	index.Bind("conn-3", app.Binding{RoomCode: "ZZ99ZZ", UserID: "u3"})

	connIDs := index.UnbindRoom("AB12CD")
	if len(connIDs) != 2 {
		t.Fatalf("expected two connections unbound, got %v", connIDs)
	}
	for _, connID := range []string{"conn-1", "conn-2"} {
		if _, ok := index.Resolve(connID); ok {
			t.Fatalf("expected %s unbound", connID)
		}
	}
	if _, ok := index.Resolve("conn-3"); !ok {
		t.Fatalf("expected other room's binding untouched")
	}
}
