package vehicle

import (
	"context"
	"errors"
	"testing"
)

func TestCreateIssuesAccessToken(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	v, err := svc.Create(ctx, 48.8566, 2.3522)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.AccessToken == "" {
		t.Fatalf("expected access token to be issued")
	}
	if !v.Available {
		t.Fatalf("expected new vehicle to be available")
	}

	resolved, err := svc.GetByToken(ctx, v.AccessToken)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if resolved.ID != v.ID {
		t.Fatalf("expected vehicle %s, got %s", v.ID, resolved.ID)
	}
}

func TestGetByTokenUnknown(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if _, err := svc.GetByToken(context.Background(), "bogus"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIsAvailableConsidersFlagAndActiveRide(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	v, err := svc.Create(ctx, 48.8566, 2.3522)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := svc.IsAvailable(ctx, v.ID)
	if err != nil || !ok {
		t.Fatalf("expected available, got %v %v", ok, err)
	}

	MarkActiveRide(repo, v.ID, true)
	ok, err = svc.IsAvailable(ctx, v.ID)
	if err != nil || ok {
		t.Fatalf("expected unavailable while ride active, got %v %v", ok, err)
	}

	MarkActiveRide(repo, v.ID, false)
	if err := svc.SetAvailable(ctx, v.ID, false); err != nil {
		t.Fatalf("set available: %v", err)
	}
	ok, err = svc.IsAvailable(ctx, v.ID)
	if err != nil || ok {
		t.Fatalf("expected unavailable when flag off, got %v %v", ok, err)
	}
}
