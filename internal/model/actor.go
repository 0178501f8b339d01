package model

import "strings"

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTutor   Role = "TUTOR"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole приводит роль из заголовка к известному значению
func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch role {
	case RoleStudent, RoleTutor, RoleAdmin:
		return role, true
	}
	return "", false
}

// Actor пользователь, от имени которого выполняется действие.
// Личность проверяет внешний сервис идентификации.
type Actor struct {
	ID   string
	Role Role
}
