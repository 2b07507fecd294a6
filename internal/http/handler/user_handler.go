package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/middleware"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
)

const usersPath = "/admin/users"

var (
	userFields     = []string{"username", "role", "realname", "email", "password", "password_confirmation", "image"}
	passwordFields = []string{"current_password", "password", "password_confirmation"}
)

type UserView struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Realname  string    `json:"realname"`
	Email     string    `json:"email"`
	RoleID    uint      `json:"role_id"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type RoleOption struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type UserHandler struct {
	users service.UserServiceInterface
	pages *Pages
}

func NewUserHandler(users service.UserServiceInterface, pages *Pages) *UserHandler {
	return &UserHandler{users: users, pages: pages}
}

func (h *UserHandler) Index(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	page, err := h.users.List(r.Context(), pageParam(r))
	if err != nil {
		observability.RecordAdminListRequestDuration(r.Context(), "users", "error", time.Since(start))
		h.pages.ServerError(w, r, fmt.Errorf("list users: %w", err))
		return
	}
	observability.RecordAdminListRequestDuration(r.Context(), "users", "success", time.Since(start))
	observability.RecordAdminListPageSize(r.Context(), "users", len(page.Items))
	h.pages.Render(w, r, "Users", map[string]any{
		"users": repository.WithItems(page, h.views(r.Context(), page.Items)),
	})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleOptions(r.Context())
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	h.pages.Render(w, r, "Create User", map[string]any{"roles": roles})
}

func (h *UserHandler) Store(w http.ResponseWriter, r *http.Request) {
	back := usersPath + "/create"
	in, err := formInput(r, userFields...)
	if err != nil {
		h.pages.Fail(w, r, back, err)
		return
	}
	user, err := h.users.Create(r.Context(), in)
	if verrs, ok := service.IsValidationError(err); ok {
		h.pages.Invalid(w, r, back, verrs, in)
		return
	}
	if err != nil {
		audit(r, "admin.user.create", "user", "", "create", "failure", "internal_error")
		h.pages.Fail(w, r, back, err)
		return
	}
	audit(r, "admin.user.create", "user", idString(user.ID), "create", "success", "")
	h.pages.Status(w, r, usersPath, flash.LevelSuccess, fmt.Sprintf("The User <b>%s</b> was successfully created.", user.Username))
}

func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	user, ok := h.find(w, r)
	if !ok {
		return
	}
	h.pages.Render(w, r, "User "+user.Username, map[string]any{"user": h.view(r.Context(), user)})
}

func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.find(w, r)
	if !ok {
		return
	}
	roles, err := h.roleOptions(r.Context())
	if err != nil {
		h.pages.ServerError(w, r, err)
		return
	}
	h.pages.Render(w, r, "Edit User", map[string]any{"user": h.view(r.Context(), user), "roles": roles})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r, chiParam(r))
		return
	}
	back := fmt.Sprintf("%s/%d/edit", usersPath, id)
	in, err := formInput(r, userFields...)
	if err != nil {
		h.pages.Fail(w, r, back, err)
		return
	}
	res, err := h.users.Update(r.Context(), id, in)
	if verrs, ok := service.IsValidationError(err); ok {
		h.pages.Invalid(w, r, back, verrs, in)
		return
	}
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		h.notFound(w, r, idString(id))
		return
	case err != nil:
		audit(r, "admin.user.update", "user", idString(id), "update", "failure", "internal_error")
		h.pages.Fail(w, r, back, err)
		return
	}
	audit(r, "admin.user.update", "user", idString(id), "update", "success", "")
	h.pages.Status(w, r, usersPath, flash.LevelSuccess, fmt.Sprintf("The User <b>%s</b> was successfully updated.", res.PreviousUsername))
}

func (h *UserHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r, chiParam(r))
		return
	}
	user, err := h.users.Delete(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		h.notFound(w, r, idString(id))
		return
	case err != nil:
		audit(r, "admin.user.delete", "user", idString(id), "delete", "failure", "internal_error")
		h.pages.Fail(w, r, usersPath, err)
		return
	}
	audit(r, "admin.user.delete", "user", idString(id), "delete", "success", "")
	h.pages.Status(w, r, usersPath, flash.LevelSuccess, fmt.Sprintf("The User <b>%s</b> was successfully deleted.", user.Username))
}

// Search renders matches directly; the query is echoed escaped.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	in, err := formInput(r, "query")
	if err != nil {
		h.pages.Fail(w, r, usersPath, err)
		return
	}
	users, err := h.users.Search(r.Context(), in)
	if verrs, ok := service.IsValidationError(err); ok {
		h.pages.Invalid(w, r, usersPath, verrs, in)
		return
	}
	if err != nil {
		h.pages.Fail(w, r, usersPath, err)
		return
	}
	query := html.EscapeString(in.Trimmed("query"))
	h.pages.Render(w, r, "Searching Users for: "+query, map[string]any{
		"query": query,
		"users": h.views(r.Context(), users),
	})
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.pages.ServerError(w, r, errors.New("profile: no principal in context"))
		return
	}
	h.pages.Render(w, r, "Profile", map[string]any{"user": h.view(r.Context(), user)})
}

func (h *UserHandler) PostProfile(w http.ResponseWriter, r *http.Request) {
	back := usersPath + "/profile"
	user, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.pages.Fail(w, r, back, errors.New("profile: no principal in context"))
		return
	}
	in, err := formInput(r, passwordFields...)
	if err != nil {
		h.pages.Fail(w, r, back, err)
		return
	}
	err = h.users.ChangePassword(r.Context(), user.ID, in)
	if verrs, ok := service.IsValidationError(err); ok {
		audit(r, "auth.password.change", "user", idString(user.ID), "change_password", "rejected", "validation")
		h.pages.Invalid(w, r, back, verrs, in)
		return
	}
	if err != nil {
		h.pages.Fail(w, r, back, err)
		return
	}
	audit(r, "auth.password.change", "user", idString(user.ID), "change_password", "success", "")
	h.pages.Status(w, r, back, flash.LevelSuccess, "You have successfully updated your Password.")
}

func (h *UserHandler) find(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	id, ok := idParam(r)
	if !ok {
		h.notFound(w, r, chiParam(r))
		return nil, false
	}
	user, err := h.users.Get(r.Context(), id)
	if errors.Is(err, repository.ErrUserNotFound) {
		h.notFound(w, r, idString(id))
		return nil, false
	}
	if err != nil {
		h.pages.ServerError(w, r, fmt.Errorf("get user %d: %w", id, err))
		return nil, false
	}
	return user, true
}

func (h *UserHandler) notFound(w http.ResponseWriter, r *http.Request, id string) {
	h.pages.Status(w, r, usersPath, flash.LevelDanger, "User not found: #"+html.EscapeString(id))
}

func (h *UserHandler) roleOptions(ctx context.Context) ([]RoleOption, error) {
	roles, err := h.users.Roles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return lo.Map(roles, func(role domain.Role, _ int) RoleOption {
		return RoleOption{ID: role.ID, Name: role.Name}
	}), nil
}

func (h *UserHandler) views(ctx context.Context, users []domain.User) []UserView {
	return lo.Map(users, func(u domain.User, _ int) UserView { return h.view(ctx, &u) })
}

func (h *UserHandler) view(ctx context.Context, u *domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Realname:  u.Realname,
		Email:     u.Email,
		RoleID:    u.RoleID,
		Role:      u.RoleName(),
		Active:    u.Active,
		ImageURL:  h.users.ImageURL(ctx, u),
		CreatedAt: u.CreatedAt,
	}
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
