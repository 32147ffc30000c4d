package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lifeasacraft/backend/internal/domain"
	"github.com/lifeasacraft/backend/internal/domain/project"
)

func TestProjectCreateAndGet(t *testing.T) {
	store := newFakeStore()
	svc := NewProjectService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, &project.CreateRequest{Title: "support", Intention: "answer order questions"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}

	proj, msgs, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if proj.Title != "support" || len(msgs) != 0 {
		t.Fatalf("unexpected project: %+v msgs=%d", proj, len(msgs))
	}
}

func TestProjectCreateValidation(t *testing.T) {
	svc := NewProjectService(newFakeStore())

	_, err := svc.Create(context.Background(), &project.CreateRequest{Title: "", Intention: "x"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProjectCreateMissingParent(t *testing.T) {
	svc := NewProjectService(newFakeStore())

	_, err := svc.Create(context.Background(), &project.CreateRequest{
		Title: "child", Intention: "x", ParentProjectID: "ghost",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing parent, got %v", err)
	}
}

func TestProjectGetNotFound(t *testing.T) {
	svc := NewProjectService(newFakeStore())

	_, _, err := svc.Get(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectAppendMessageRequiresProject(t *testing.T) {
	store := newFakeStore()
	svc := NewProjectService(store)
	ctx := context.Background()

	req := userRequest("hi", "kevin")
	if _, err := svc.AppendMessage(ctx, "ghost", &req); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	created, _ := svc.Create(ctx, &project.CreateRequest{Title: "t", Intention: "i"})
	stored, err := svc.AppendMessage(ctx, created.ID, &req)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if stored.ProjectID != created.ID {
		t.Fatalf("message bound to wrong project: %+v", stored)
	}
}
