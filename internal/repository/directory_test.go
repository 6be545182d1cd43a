package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
)

func TestGormUserRepositoryBlockUsers(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	for _, id := range []string{"u1", "u2", "u3"} {
		if err := repo.Create(ctx, &domain.User{ID: id, Email: id + "@example.com"}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	n, err := repo.BlockUsers(ctx, []string{"u1", "u2", "ghost"})
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 users blocked, got %d", n)
	}
	u1, err := repo.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("find u1: %v", err)
	}
	if u1.Status != domain.UserStatusBlocked {
		t.Fatalf("u1 must be blocked, got %s", u1.Status)
	}
	u3, _ := repo.FindByID(ctx, "u3")
	if u3.Status != domain.UserStatusActive {
		t.Fatalf("u3 must stay active, got %s", u3.Status)
	}

	n, err = repo.BlockUsers(ctx, []string{"u1"})
	if err != nil || n != 0 {
		t.Fatalf("re-blocking must be a no-op, got %d %v", n, err)
	}
	if _, err := repo.FindByID(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGormCourseRepositoryFindByIDs(t *testing.T) {
	repo := NewCourseRepository(newTestDB(t))
	ctx := context.Background()
	if err := repo.Create(ctx, &domain.Course{ID: "c1", Title: "Go Basics"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.FindByIDs(ctx, []string{"c1", "c404"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got["c1"].Title != "Go Basics" {
		t.Fatalf("unexpected courses: %+v", got)
	}
	empty, err := repo.FindByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result, got %v %v", empty, err)
	}
}
