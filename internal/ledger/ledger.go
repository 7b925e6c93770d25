package ledger

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/core/events"
	"github.com/frahmantamala/key-management/internal/history"
	"github.com/frahmantamala/key-management/internal/key"
	"github.com/frahmantamala/key-management/internal/storage"
	"github.com/frahmantamala/key-management/internal/user"
	"github.com/google/uuid"
)

// Ledger owns the keys, users and keyHistory collections. It is the only
// writer of all three and serializes every mutation behind one lock.
//
// A mutation builds the next snapshot, saves it, and only then adopts it,
// so a failed save leaves memory untouched. Issue and return touch two
// collections: keys are saved first, then history; if the history save
// fails the previous keys collection is written back.
type Ledger struct {
	mu sync.RWMutex

	store     storage.BlobStore
	passwords user.PasswordMatcher
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time

	keys    *key.Registry
	users   *user.Directory
	history *history.Log
}

type Option func(*Ledger)

func WithPasswords(m user.PasswordMatcher) Option {
	return func(l *Ledger) { l.passwords = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithLogger(lg *slog.Logger) Option {
	return func(l *Ledger) { l.logger = lg }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Open loads the three collections from store.
func Open(ctx context.Context, store storage.BlobStore, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:     store,
		passwords: user.PlainPasswords{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	var err error
	if l.keys, err = key.LoadRegistry(ctx, store); err != nil {
		return nil, internal.NewStoreError("load "+storage.CollectionKeys, err)
	}
	if l.users, err = user.LoadDirectory(ctx, store); err != nil {
		return nil, internal.NewStoreError("load "+storage.CollectionUsers, err)
	}
	if l.history, err = history.LoadLog(ctx, store); err != nil {
		return nil, internal.NewStoreError("load "+storage.CollectionHistory, err)
	}

	l.logger.Info("ledger opened",
		"keys", l.keys.Len(),
		"users", l.users.Len(),
		"history", l.history.Len())
	return l, nil
}

// IssueResult is the key as stored after the issue plus the name
// recorded as its holder.
type IssueResult struct {
	Key        key.Key `json:"key"`
	HolderName string  `json:"holder_name"`
}

// IssueKey hands the key with barcode to holder. The key is looked up
// first, then the holder, then availability, so an unknown card code is
// reported even against a key that is already out.
func (l *Ledger) IssueKey(ctx context.Context, barcode string, holder Holder) (IssueResult, error) {
	barcode = key.NormalizeBarcode(barcode)

	l.mu.Lock()
	defer l.mu.Unlock()

	k, ok := l.keys.FindByBarcode(barcode)
	if !ok {
		l.logger.Warn("issue rejected: unknown key", "barcode", barcode)
		return IssueResult{}, internal.ErrKeyNotFound
	}

	u, err := l.resolveHolder(holder)
	if err != nil {
		l.logger.Warn("issue rejected: holder", "barcode", barcode, "holder", holder.String(), "error", err)
		return IssueResult{}, err
	}

	if !k.Available {
		l.logger.Warn("issue rejected: key already issued", "barcode", barcode, "key_id", k.ID, "held_by", k.TakenBy)
		return IssueResult{}, internal.ErrKeyAlreadyIssued
	}

	at := l.now()
	name := u.DisplayName()

	nextKeys, taken, err := l.keys.MarkTaken(k.ID, name, at)
	if err != nil {
		return IssueResult{}, err
	}
	record := history.NewRecord(taken.Name, taken.Barcode, history.ActionTaken, name, at)
	nextHistory := l.history.Append(record)

	if err := l.commitMovement(ctx, nextKeys, nextHistory); err != nil {
		return IssueResult{}, err
	}

	l.logger.Info("key issued", "barcode", barcode, "key_id", taken.ID, "holder", name)
	l.publish(ctx, events.NewKeyIssuedEvent(taken.ID, taken.Name, taken.Barcode, name, record.ID, at))

	return IssueResult{Key: taken, HolderName: name}, nil
}

// ReturnKey puts the key back. The history record names the holder the
// key had before the return.
func (l *Ledger) ReturnKey(ctx context.Context, barcode string) (key.Key, error) {
	barcode = key.NormalizeBarcode(barcode)

	l.mu.Lock()
	defer l.mu.Unlock()

	k, ok := l.keys.FindByBarcode(barcode)
	if !ok {
		l.logger.Warn("return rejected: unknown key", "barcode", barcode)
		return key.Key{}, internal.ErrKeyNotFound
	}
	if k.Available {
		l.logger.Warn("return rejected: key already available", "barcode", barcode, "key_id", k.ID)
		return key.Key{}, internal.ErrKeyAlreadyAvailable
	}

	holder := k.TakenBy
	at := l.now()

	nextKeys, returned, err := l.keys.MarkReturned(k.ID)
	if err != nil {
		return key.Key{}, err
	}
	record := history.NewRecord(returned.Name, returned.Barcode, history.ActionReturned, holder, at)
	nextHistory := l.history.Append(record)

	if err := l.commitMovement(ctx, nextKeys, nextHistory); err != nil {
		return key.Key{}, err
	}

	l.logger.Info("key returned", "barcode", barcode, "key_id", returned.ID, "holder", holder)
	l.publish(ctx, events.NewKeyReturnedEvent(returned.ID, returned.Name, returned.Barcode, holder, record.ID, at))

	return returned, nil
}

func (l *Ledger) commitMovement(ctx context.Context, nextKeys *key.Registry, nextHistory *history.Log) error {
	if err := nextKeys.Save(ctx, l.store); err != nil {
		l.logger.Error("failed to save keys", "error", err)
		return internal.NewStoreError("save "+storage.CollectionKeys, err)
	}
	if err := nextHistory.Save(ctx, l.store); err != nil {
		l.logger.Error("failed to save history, restoring keys", "error", err)
		if rerr := l.keys.Save(ctx, l.store); rerr != nil {
			l.logger.Error("failed to restore keys after history failure", "error", rerr)
		}
		return internal.NewStoreError("save "+storage.CollectionHistory, err)
	}
	l.keys = nextKeys
	l.history = nextHistory
	return nil
}

func (l *Ledger) resolveHolder(h Holder) (user.User, error) {
	var (
		u  user.User
		ok bool
	)
	if h.IsCardCode() {
		u, ok = l.users.FindByCardCode(h.cardCode)
	} else {
		u, ok = l.users.FindByID(h.userID)
	}
	if !ok {
		return user.User{}, internal.ErrUserNotFound
	}
	if !u.IsUsable() {
		return user.User{}, internal.ErrUserInactive
	}
	return u, nil
}

func (l *Ledger) AddKey(ctx context.Context, dto key.CreateKeyDTO) (key.Key, error) {
	if err := dto.Validate(); err != nil {
		return key.Key{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next, added, err := l.keys.Insert(key.NewKey(dto))
	if err != nil {
		l.logger.Warn("add key rejected", "barcode", key.NormalizeBarcode(dto.Barcode), "error", err)
		return key.Key{}, err
	}
	if err := next.Save(ctx, l.store); err != nil {
		l.logger.Error("failed to save keys", "error", err)
		return key.Key{}, internal.NewStoreError("save "+storage.CollectionKeys, err)
	}
	l.keys = next

	l.logger.Info("key added", "barcode", added.Barcode, "key_id", added.ID)
	l.publish(ctx, events.NewKeyAddedEvent(added.ID, added.Barcode))
	return added, nil
}

// DeleteKey removes the key whatever its state. Deleting a held key does
// not return it and writes no history. Unknown ids are a no-op.
func (l *Ledger) DeleteKey(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, removed, ok := l.keys.Remove(id)
	if !ok {
		return nil
	}
	if err := next.Save(ctx, l.store); err != nil {
		l.logger.Error("failed to save keys", "error", err)
		return internal.NewStoreError("save "+storage.CollectionKeys, err)
	}
	l.keys = next

	if removed.IsHeld() {
		l.logger.Warn("held key deleted", "barcode", removed.Barcode, "key_id", removed.ID, "holder", removed.TakenBy)
	} else {
		l.logger.Info("key deleted", "barcode", removed.Barcode, "key_id", removed.ID)
	}
	l.publish(ctx, events.NewKeyDeletedEvent(removed.ID, removed.Barcode, removed.TakenBy))
	return nil
}

func (l *Ledger) ListKeys() []key.Key {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.keys.List()
}

func (l *Ledger) FindKey(barcode string) (key.Key, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	k, ok := l.keys.FindByBarcode(key.NormalizeBarcode(barcode))
	if !ok {
		return key.Key{}, internal.ErrKeyNotFound
	}
	return k, nil
}

// QueryHistory returns a restartable sequence over the log as it was
// when QueryHistory was called.
func (l *Ledger) QueryHistory(f history.Filter) iter.Seq[history.Record] {
	l.mu.RLock()
	snapshot := l.history
	l.mu.RUnlock()
	return snapshot.Query(f)
}

func (l *Ledger) AddUser(ctx context.Context, dto user.CreateUserDTO) (user.User, error) {
	if err := dto.Validate(); err != nil {
		return user.User{}, err
	}

	candidate := user.NewUser(dto)
	candidate.ID = uuid.NewString()
	hashed, err := l.passwords.Hash(dto.Password)
	if err != nil {
		return user.User{}, internal.NewInternalError("failed to hash password", err)
	}
	candidate.Password = hashed

	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := l.users.Insert(*candidate)
	if err != nil {
		l.logger.Warn("add user rejected", "login", candidate.Login, "error", err)
		return user.User{}, err
	}
	if err := l.saveUsers(ctx, next); err != nil {
		return user.User{}, err
	}

	l.logger.Info("user added", "user_id", candidate.ID, "login", candidate.Login, "role", candidate.Role)
	return *candidate, nil
}

// UpdateUser replaces the editable fields. An empty password or role
// keeps the stored value.
func (l *Ledger) UpdateUser(ctx context.Context, id string, dto user.UpdateUserDTO) (user.User, error) {
	if err := dto.Validate(); err != nil {
		return user.User{}, err
	}

	var hashed string
	if dto.Password != "" {
		var err error
		if hashed, err = l.passwords.Hash(dto.Password); err != nil {
			return user.User{}, internal.NewInternalError("failed to hash password", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users.FindByID(id)
	if !ok {
		return user.User{}, internal.ErrUserNotFound
	}
	u.Name = strings.TrimSpace(dto.Name)
	u.FirstName = strings.TrimSpace(dto.FirstName)
	u.LastName = strings.TrimSpace(dto.LastName)
	u.Login = dto.Login
	u.CardCode = strings.TrimSpace(dto.CardCode)
	if dto.Role != "" {
		u.Role = user.Role(dto.Role)
	}
	if hashed != "" {
		u.Password = hashed
	}

	next, err := l.users.Update(u)
	if err != nil {
		l.logger.Warn("update user rejected", "user_id", id, "error", err)
		return user.User{}, err
	}
	if err := l.saveUsers(ctx, next); err != nil {
		return user.User{}, err
	}

	l.logger.Info("user updated", "user_id", id, "login", u.Login)
	return u, nil
}

func (l *Ledger) ToggleUserActive(ctx context.Context, id string) (user.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users.FindByID(id)
	if !ok {
		return user.User{}, internal.ErrUserNotFound
	}
	u.Active = !u.Active

	next, err := l.users.Update(u)
	if err != nil {
		return user.User{}, err
	}
	if err := l.saveUsers(ctx, next); err != nil {
		return user.User{}, err
	}

	l.logger.Info("user active flag changed", "user_id", id, "active", u.Active)
	return u, nil
}

// DeleteUser removes the user. History keeps the records that name them.
func (l *Ledger) DeleteUser(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users.FindByID(id)
	if !ok {
		return internal.ErrUserNotFound
	}
	if u.IsProtected() {
		l.logger.Warn("delete user rejected: protected account", "user_id", id)
		return internal.ErrCannotDeleteAdmin
	}

	next, _ := l.users.Remove(id)
	if err := l.saveUsers(ctx, next); err != nil {
		return err
	}

	l.logger.Info("user deleted", "user_id", id, "login", u.Login)
	return nil
}

func (l *Ledger) saveUsers(ctx context.Context, next *user.Directory) error {
	if err := next.Save(ctx, l.store); err != nil {
		l.logger.Error("failed to save users", "error", err)
		return internal.NewStoreError("save "+storage.CollectionUsers, err)
	}
	l.users = next
	return nil
}

func (l *Ledger) ListUsers() []user.User {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.users.List()
}

func (l *Ledger) GetUser(id string) (user.User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	u, ok := l.users.FindByID(id)
	if !ok {
		return user.User{}, internal.ErrUserNotFound
	}
	return u, nil
}

// Authenticate checks a login and password. Inactive users are refused.
func (l *Ledger) Authenticate(login, password string) (user.User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.users.Authenticate(login, password, l.passwords)
}

type Stats struct {
	TotalKeys     int `json:"total_keys"`
	AvailableKeys int `json:"available_keys"`
	HeldKeys      int `json:"held_keys"`
	TotalUsers    int `json:"total_users"`
	ActiveUsers   int `json:"active_users"`
	HistorySize   int `json:"history_size"`
}

func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	available := l.keys.CountAvailable()
	return Stats{
		TotalKeys:     l.keys.Len(),
		AvailableKeys: available,
		HeldKeys:      l.keys.Len() - available,
		TotalUsers:    l.users.Len(),
		ActiveUsers:   l.users.CountActive(),
		HistorySize:   l.history.Len(),
	}
}

// Counts feeds the metrics gauges.
func (l *Ledger) Counts() (totalKeys, heldKeys, activeUsers int) {
	s := l.Stats()
	return s.TotalKeys, s.HeldKeys, s.ActiveUsers
}

func (l *Ledger) publish(ctx context.Context, event events.Event) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.logger.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
