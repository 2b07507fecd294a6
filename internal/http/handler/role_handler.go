package handler

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
)

const rolesPath = "/admin/roles"

var roleFields = []string{"name", "description"}

type RoleHandler struct {
	roles service.RoleServiceInterface
	pages *Pages
}

func NewRoleHandler(roles service.RoleServiceInterface, pages *Pages) *RoleHandler {
	return &RoleHandler{roles: roles, pages: pages}
}

func (h *RoleHandler) Index(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		h.pages.ServerError(w, r, fmt.Errorf("list roles: %w", err))
		return
	}
	h.pages.Render(w, r, "Roles", map[string]any{"roles": roles})
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "Create Role", map[string]any{})
}

func (h *RoleHandler) Store(w http.ResponseWriter, r *http.Request) {
	back := rolesPath + "/create"
	in, err := formInput(r, roleFields...)
	if err != nil {
		h.pages.Fail(w, r, back, err)
		return
	}
	role, err := h.roles.Create(r.Context(), in)
	if verrs, ok := service.IsValidationError(err); ok {
		h.pages.Invalid(w, r, back, verrs, in)
		return
	}
	if err != nil {
		audit(r, "admin.role.create", "role", "", "create", "failure", "internal_error")
		h.pages.Fail(w, r, back, err)
		return
	}
	audit(r, "admin.role.create", "role", idString(role.ID), "create", "success", "")
	h.pages.Status(w, r, rolesPath, flash.LevelSuccess, fmt.Sprintf("The Role <b>%s</b> was successfully created.", role.Name))
}

func (h *RoleHandler) Show(w http.ResponseWriter, r *http.Request) {
	role, ok := h.find(w, r)
	if !ok {
		return
	}
	h.pages.Render(w, r, "Role "+role.Name, map[string]any{"role": role})
}

func (h *RoleHandler) Edit(w http.ResponseWriter, r *http.Request) {
	role, ok := h.find(w, r)
	if !ok {
		return
	}
	h.pages.Render(w, r, "Edit Role", map[string]any{"role": role})
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r, chiParam(r))
		return
	}
	back := fmt.Sprintf("%s/%d/edit", rolesPath, id)
	in, err := formInput(r, roleFields...)
	if err != nil {
		h.pages.Fail(w, r, back, err)
		return
	}
	role, err := h.roles.Update(r.Context(), id, in)
	if verrs, ok := service.IsValidationError(err); ok {
		h.pages.Invalid(w, r, back, verrs, in)
		return
	}
	switch {
	case errors.Is(err, repository.ErrRoleNotFound):
		h.notFound(w, r, idString(id))
		return
	case err != nil:
		audit(r, "admin.role.update", "role", idString(id), "update", "failure", "internal_error")
		h.pages.Fail(w, r, back, err)
		return
	}
	audit(r, "admin.role.update", "role", idString(id), "update", "success", "")
	h.pages.Status(w, r, rolesPath, flash.LevelSuccess, fmt.Sprintf("The Role <b>%s</b> was successfully updated.", role.Name))
}

func (h *RoleHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r, chiParam(r))
		return
	}
	role, err := h.roles.Delete(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrRoleNotFound):
		h.notFound(w, r, idString(id))
		return
	case errors.Is(err, repository.ErrRoleInUse):
		audit(r, "admin.role.delete", "role", idString(id), "delete", "rejected", "in_use")
		h.pages.Status(w, r, rolesPath, flash.LevelDanger, "The Role is still assigned to users and cannot be deleted.")
		return
	case err != nil:
		audit(r, "admin.role.delete", "role", idString(id), "delete", "failure", "internal_error")
		h.pages.Fail(w, r, rolesPath, err)
		return
	}
	audit(r, "admin.role.delete", "role", idString(id), "delete", "success", "")
	h.pages.Status(w, r, rolesPath, flash.LevelSuccess, fmt.Sprintf("The Role <b>%s</b> was successfully deleted.", role.Name))
}

func (h *RoleHandler) find(w http.ResponseWriter, r *http.Request) (*domain.Role, bool) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r, chiParam(r))
		return nil, false
	}
	role, err := h.roles.Get(r.Context(), id)
	if errors.Is(err, repository.ErrRoleNotFound) {
		h.notFound(w, r, idString(id))
		return nil, false
	}
	if err != nil {
		h.pages.ServerError(w, r, fmt.Errorf("get role %d: %w", id, err))
		return nil, false
	}
	return role, true
}

func (h *RoleHandler) notFound(w http.ResponseWriter, r *http.Request, id string) {
	h.pages.Status(w, r, rolesPath, flash.LevelDanger, "Role not found: #"+html.EscapeString(id))
}
