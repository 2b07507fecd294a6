package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	repogomock "github.com/sandeepkv93/cms-admin-backend/internal/repository/gomock"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

func newRoleServiceForTest(t *testing.T, records fakeRecords) (*RoleService, *repogomock.MockRoleRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	roles := repogomock.NewMockRoleRepository(ctrl)
	return NewRoleService(roles, newValidatorForTest(records)), roles
}

func TestRoleServiceCreate(t *testing.T) {
	svc, roles := newRoleServiceForTest(t, fakeRecords{})
	roles.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *domain.Role) error {
		r.ID = 3
		return nil
	})

	role, err := svc.Create(context.Background(), validation.NewInput(map[string]string{
		"name": " Content Editor ", "description": "Writes and edits pages",
	}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if role.ID != 3 || role.Name != "Content Editor" {
		t.Fatalf("unexpected role %+v", role)
	}
}

func TestRoleServiceCreateRejectsInvalidName(t *testing.T) {
	svc, _ := newRoleServiceForTest(t, fakeRecords{taken: map[string]uint{"roles.name=Member": 2}})

	tests := []struct {
		name, input, want string
	}{
		{name: "taken", input: "Member", want: "The Name has already been taken."},
		{name: "punctuation", input: "Admin!!", want: "The Name may only contain letters, numbers, spaces, dashes and underscores."},
		{name: "short", input: "Ed", want: "The Name must be at least 4 characters."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), validation.NewInput(map[string]string{
				"name": tc.input, "description": "Some description",
			}))
			verrs, ok := IsValidationError(err)
			if !ok || verrs.First("name") != tc.want {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRoleServiceUpdateKeepsOwnName(t *testing.T) {
	svc, roles := newRoleServiceForTest(t, fakeRecords{taken: map[string]uint{"roles.name=Member": 2}})
	roles.EXPECT().FindByID(gomock.Any(), uint(2)).Return(&domain.Role{ID: 2, Name: "Member", Description: "old"}, nil)
	roles.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	role, err := svc.Update(context.Background(), 2, validation.NewInput(map[string]string{
		"name": "Member", "description": "Regular members",
	}))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if role.Description != "Regular members" {
		t.Fatalf("unexpected role %+v", role)
	}
}

func TestRoleServiceDelete(t *testing.T) {
	t.Run("in use", func(t *testing.T) {
		svc, roles := newRoleServiceForTest(t, fakeRecords{})
		roles.EXPECT().FindByID(gomock.Any(), uint(1)).Return(&domain.Role{ID: 1, Name: "Administrator"}, nil)
		roles.EXPECT().DeleteByID(gomock.Any(), uint(1)).Return(repository.ErrRoleInUse)
		if _, err := svc.Delete(context.Background(), 1); !errors.Is(err, repository.ErrRoleInUse) {
			t.Fatalf("expected ErrRoleInUse, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		svc, roles := newRoleServiceForTest(t, fakeRecords{})
		roles.EXPECT().FindByID(gomock.Any(), uint(9)).Return(nil, repository.ErrRoleNotFound)
		if _, err := svc.Delete(context.Background(), 9); !errors.Is(err, repository.ErrRoleNotFound) {
			t.Fatalf("expected ErrRoleNotFound, got %v", err)
		}
	})

	t.Run("unused", func(t *testing.T) {
		svc, roles := newRoleServiceForTest(t, fakeRecords{})
		roles.EXPECT().FindByID(gomock.Any(), uint(4)).Return(&domain.Role{ID: 4, Name: "Guest"}, nil)
		roles.EXPECT().DeleteByID(gomock.Any(), uint(4)).Return(nil)
		role, err := svc.Delete(context.Background(), 4)
		if err != nil || role.Name != "Guest" {
			t.Fatalf("unexpected delete result %+v, %v", role, err)
		}
	})
}
