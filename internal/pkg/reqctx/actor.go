package reqctx

import (
	"context"

	"github.com/google/uuid"
)

// Роли, которым разрешена работа с модерацией.
const (
	RoleBroker      = "broker"
	RoleAdmin       = "admin"
	RoleTenantAdmin = "tenant_admin"
	RoleSuperAdmin  = "super_admin"
)

// Actor описывает, кто и в каком сообществе выполняет запрос.
// Создаётся middleware из access токена и явно передаётся в use case.
type Actor struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Name     string
	Role     string
	BasePath string
}

// CanModerate сообщает, может ли актор выполнять действия брокера.
func (a Actor) CanModerate() bool {
	switch a.Role {
	case RoleBroker, RoleAdmin, RoleTenantAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Valid проверяет, что актор привязан к сообществу и пользователю.
func (a Actor) Valid() bool {
	return a.TenantID != uuid.Nil && a.UserID != uuid.Nil
}

type actorKey struct{}

// WithActor кладёт актора в context.Context запроса.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext достаёт актора из контекста.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// CanConfigure сообщает, может ли актор менять настройки модерации сообщества.
func (a Actor) CanConfigure() bool {
	switch a.Role {
	case RoleAdmin, RoleTenantAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
