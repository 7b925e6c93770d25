package user

import (
	"context"

	"github.com/frahmantamala/key-management/internal"
	userDatamodel "github.com/frahmantamala/key-management/internal/core/datamodel/user"
	"github.com/frahmantamala/key-management/internal/storage"
)

// Directory is an immutable snapshot of the users collection. Mutating
// methods return the next snapshot and leave the receiver untouched, so
// the caller can persist the result before adopting it.
type Directory struct {
	users []User
}

func NewDirectory(users []User) *Directory {
	cp := make([]User, len(users))
	copy(cp, users)
	return &Directory{users: cp}
}

func LoadDirectory(ctx context.Context, store storage.BlobStore) (*Directory, error) {
	records, err := storage.LoadCollection[userDatamodel.User](ctx, store, storage.CollectionUsers)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(records))
	for i := range records {
		users = append(users, *FromDataModel(&records[i]))
	}
	return &Directory{users: users}, nil
}

func (d *Directory) Save(ctx context.Context, store storage.BlobStore) error {
	records := make([]userDatamodel.User, 0, len(d.users))
	for i := range d.users {
		records = append(records, *ToDataModel(&d.users[i]))
	}
	return storage.SaveCollection(ctx, store, storage.CollectionUsers, records)
}

func (d *Directory) Len() int {
	return len(d.users)
}

// List returns the users in insertion order.
func (d *Directory) List() []User {
	cp := make([]User, len(d.users))
	copy(cp, d.users)
	return cp
}

func (d *Directory) FindByID(id string) (User, bool) {
	return d.find(func(u *User) bool { return u.ID == id })
}

func (d *Directory) FindByLogin(login string) (User, bool) {
	return d.find(func(u *User) bool { return u.Login == login })
}

// FindByCardCode never matches the empty card code.
func (d *Directory) FindByCardCode(code string) (User, bool) {
	if code == "" {
		return User{}, false
	}
	return d.find(func(u *User) bool { return u.CardCode == code })
}

// FindByCredentials matches login exactly and the password through matcher.
// It does not look at the active flag.
func (d *Directory) FindByCredentials(login, password string, matcher PasswordMatcher) (User, bool) {
	u, ok := d.FindByLogin(login)
	if !ok || !matcher.Matches(u.Password, password) {
		return User{}, false
	}
	return u, true
}

// Authenticate returns the active user whose login and password match.
func (d *Directory) Authenticate(login, password string, matcher PasswordMatcher) (User, error) {
	u, ok := d.FindByCredentials(login, password, matcher)
	if !ok {
		return User{}, internal.ErrInvalidCredentials
	}
	if !u.IsUsable() {
		return User{}, internal.ErrUserInactive
	}
	return u, nil
}

func (d *Directory) Insert(u User) (*Directory, error) {
	if err := d.checkUnique(u, ""); err != nil {
		return nil, err
	}
	next := make([]User, len(d.users), len(d.users)+1)
	copy(next, d.users)
	return &Directory{users: append(next, u)}, nil
}

// Update replaces the user with the same ID. Login and card code stay
// unique among the other users.
func (d *Directory) Update(u User) (*Directory, error) {
	idx := d.indexOf(u.ID)
	if idx < 0 {
		return nil, internal.ErrUserNotFound
	}
	if err := d.checkUnique(u, u.ID); err != nil {
		return nil, err
	}
	next := d.List()
	next[idx] = u
	return &Directory{users: next}, nil
}

func (d *Directory) Remove(id string) (*Directory, bool) {
	idx := d.indexOf(id)
	if idx < 0 {
		return d, false
	}
	next := make([]User, 0, len(d.users)-1)
	next = append(next, d.users[:idx]...)
	next = append(next, d.users[idx+1:]...)
	return &Directory{users: next}, true
}

// CountActive reports how many users may currently authenticate.
func (d *Directory) CountActive() int {
	n := 0
	for i := range d.users {
		if d.users[i].Active {
			n++
		}
	}
	return n
}

func (d *Directory) checkUnique(u User, exceptID string) error {
	for i := range d.users {
		existing := &d.users[i]
		if exceptID != "" && existing.ID == exceptID {
			continue
		}
		if existing.Login == u.Login {
			return internal.ErrDuplicateLogin
		}
		if u.CardCode != "" && existing.CardCode == u.CardCode {
			return internal.ErrDuplicateCardCode
		}
	}
	return nil
}

func (d *Directory) indexOf(id string) int {
	for i := range d.users {
		if d.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Directory) find(match func(*User) bool) (User, bool) {
	for i := range d.users {
		if match(&d.users[i]) {
			return d.users[i], true
		}
	}
	return User{}, false
}
