package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

type stubRoleSvc struct {
	listFn   func() ([]domain.RoleWithUsage, error)
	getFn    func(id uint) (*domain.Role, error)
	createFn func(in validation.Input) (*domain.Role, error)
	updateFn func(id uint, in validation.Input) (*domain.Role, error)
	deleteFn func(id uint) (*domain.Role, error)
}

func (s *stubRoleSvc) List(context.Context) ([]domain.RoleWithUsage, error) {
	if s.listFn != nil {
		return s.listFn()
	}
	return nil, nil
}

func (s *stubRoleSvc) Get(_ context.Context, id uint) (*domain.Role, error) {
	if s.getFn != nil {
		return s.getFn(id)
	}
	return nil, repository.ErrRoleNotFound
}

func (s *stubRoleSvc) Create(_ context.Context, in validation.Input) (*domain.Role, error) {
	if s.createFn != nil {
		return s.createFn(in)
	}
	return nil, errors.New("not implemented")
}

func (s *stubRoleSvc) Update(_ context.Context, id uint, in validation.Input) (*domain.Role, error) {
	if s.updateFn != nil {
		return s.updateFn(id, in)
	}
	return nil, errors.New("not implemented")
}

func (s *stubRoleSvc) Delete(_ context.Context, id uint) (*domain.Role, error) {
	if s.deleteFn != nil {
		return s.deleteFn(id)
	}
	return nil, errors.New("not implemented")
}

func TestRoleIndexIncludesUsage(t *testing.T) {
	svc := &stubRoleSvc{listFn: func() ([]domain.RoleWithUsage, error) {
		return []domain.RoleWithUsage{{Role: domain.Role{ID: 1, Name: "Administrator"}, UserCount: 2}}, nil
	}}
	pages, _ := newTestPages(t, nil)
	rr := httptest.NewRecorder()

	NewRoleHandler(svc, pages).Index(rr, httptest.NewRequest(http.MethodGet, "/admin/roles", nil))

	var content struct {
		Roles []domain.RoleWithUsage `json:"roles"`
	}
	decodeContent(t, decodePage(t, rr), &content)
	if len(content.Roles) != 1 || content.Roles[0].UserCount != 2 {
		t.Fatalf("unexpected roles: %+v", content.Roles)
	}
}

func TestRoleStoreAndUpdate(t *testing.T) {
	svc := &stubRoleSvc{
		createFn: func(in validation.Input) (*domain.Role, error) {
			if in.Get("name") == "Taken" {
				return nil, fieldErr("name", "The Name has already been taken.")
			}
			return &domain.Role{ID: 3, Name: in.Get("name")}, nil
		},
		updateFn: func(id uint, in validation.Input) (*domain.Role, error) {
			if id != 3 {
				return nil, repository.ErrRoleNotFound
			}
			return &domain.Role{ID: id, Name: in.Get("name")}, nil
		},
	}
	pages, store := newTestPages(t, nil)
	h := NewRoleHandler(svc, pages)

	rr := httptest.NewRecorder()
	h.Store(rr, formRequest(http.MethodPost, "/admin/roles", url.Values{"name": {"Editor"}}))
	requireRedirect(t, rr, "/admin/roles")
	if msg := store.lastMessage(t); msg.Text != "The Role <b>Editor</b> was successfully created." {
		t.Fatalf("unexpected message: %+v", msg)
	}

	rr = httptest.NewRecorder()
	h.Store(rr, formRequest(http.MethodPost, "/admin/roles", url.Values{"name": {"Taken"}}))
	requireRedirect(t, rr, "/admin/roles/create")
	if p := store.last(t); p.Input["name"] != "Taken" {
		t.Fatalf("expected input preserved, got %+v", p)
	}

	rr = httptest.NewRecorder()
	h.Update(rr, withURLParam(formRequest(http.MethodPost, "/admin/roles/3", url.Values{"name": {"Writers"}}), "id", "3"))
	requireRedirect(t, rr, "/admin/roles")
	if msg := store.lastMessage(t); msg.Text != "The Role <b>Writers</b> was successfully updated." {
		t.Fatalf("unexpected message: %+v", msg)
	}

	rr = httptest.NewRecorder()
	h.Update(rr, withURLParam(formRequest(http.MethodPost, "/admin/roles/7", url.Values{"name": {"X"}}), "id", "7"))
	requireRedirect(t, rr, "/admin/roles")
	if msg := store.lastMessage(t); msg.Text != "Role not found: #7" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestRoleDestroyInUse(t *testing.T) {
	svc := &stubRoleSvc{deleteFn: func(uint) (*domain.Role, error) {
		return nil, repository.ErrRoleInUse
	}}
	pages, store := newTestPages(t, nil)
	rr := httptest.NewRecorder()

	NewRoleHandler(svc, pages).Destroy(rr, withURLParam(httptest.NewRequest(http.MethodPost, "/admin/roles/1/delete", nil), "id", "1"))

	requireRedirect(t, rr, "/admin/roles")
	if msg := store.lastMessage(t); msg.Level != flash.LevelDanger {
		t.Fatalf("expected danger status, got %+v", msg)
	}
}

func TestRoleShowFound(t *testing.T) {
	svc := &stubRoleSvc{getFn: func(id uint) (*domain.Role, error) {
		return &domain.Role{ID: id, Name: "Member"}, nil
	}}
	pages, _ := newTestPages(t, nil)
	rr := httptest.NewRecorder()

	NewRoleHandler(svc, pages).Show(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/admin/roles/2", nil), "id", "2"))

	if env := decodePage(t, rr); env.Data.Title != "Role Member" {
		t.Fatalf("unexpected title: %q", env.Data.Title)
	}
}
