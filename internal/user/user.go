package user

import (
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/key-management/internal/core/datamodel/user"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AdminLogin is the distinguished administrator account that can never be deleted.
const AdminLogin = "admin"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Login     string    `json:"login"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	CardCode  string    `json:"card_code,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// IsUsable reports whether the user may authenticate or receive a key.
func (u *User) IsUsable() bool {
	return u.Active
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsProtected() bool {
	return u.Login == AdminLogin
}

// DisplayName is the holder name stamped on keys and history records:
// full name, else "first last", else login.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if composed := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName)); composed != "" {
		return composed
	}
	return u.Login
}

func NewUser(dto CreateUserDTO) *User {
	role := Role(dto.Role)
	if role == "" {
		role = RoleUser
	}
	return &User{
		Name:      strings.TrimSpace(dto.Name),
		FirstName: strings.TrimSpace(dto.FirstName),
		LastName:  strings.TrimSpace(dto.LastName),
		Login:     dto.Login,
		Password:  dto.Password,
		Role:      role,
		CardCode:  strings.TrimSpace(dto.CardCode),
		Active:    true,
		CreatedAt: time.Now(),
	}
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:        u.ID,
		Name:      u.Name,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Login:     u.Login,
		Password:  u.Password,
		Role:      string(u.Role),
		CardCode:  u.CardCode,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Login:     u.Login,
		Password:  u.Password,
		Role:      Role(u.Role),
		CardCode:  u.CardCode,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}
