package user

import (
	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/core/common/validation"
)

type CreateUserDTO struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Login     string `json:"login"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
	CardCode  string `json:"card_code,omitempty"`
}

func (d CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("login", d.Login).Required().MaxLength(100)
	v.Field("password", d.Password).Required()
	v.Field("role", d.Role).OneOf(internal.ErrCodeInvalidRole, string(RoleUser), string(RoleAdmin))
	v.Field("card_code", d.CardCode).MaxLength(100)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateUserDTO replaces the editable fields of a user. An empty password
// keeps the stored one.
type UpdateUserDTO struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Login     string `json:"login"`
	Password  string `json:"password,omitempty"`
	Role      string `json:"role,omitempty"`
	CardCode  string `json:"card_code,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("login", d.Login).Required().MaxLength(100)
	v.Field("role", d.Role).OneOf(internal.ErrCodeInvalidRole, string(RoleUser), string(RoleAdmin))
	v.Field("card_code", d.CardCode).MaxLength(100)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type GeneratedPasswordResponse struct {
	Password string `json:"password"`
}
