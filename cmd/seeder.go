package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/key"
	"github.com/frahmantamala/key-management/internal/ledger"
	"github.com/frahmantamala/key-management/internal/storage"
	"github.com/frahmantamala/key-management/internal/user"
	"github.com/frahmantamala/key-management/pkg/logger"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the store with default users and keys",
	Long:  `Seed the store with the default administrator, sample users and sample keys. Existing logins and barcodes are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		ctx := context.Background()
		store, err := openStore(ctx, cfg.Storage)
		if err != nil {
			log.Fatalf("failed to open storage: %v", err)
		}
		defer store.Close()

		if clearData {
			for _, coll := range []string{storage.CollectionKeys, storage.CollectionUsers, storage.CollectionHistory} {
				if err := store.Save(ctx, coll, []byte("[]")); err != nil {
					log.Fatalf("failed to clear %s: %v", coll, err)
				}
			}
			fmt.Println("Cleared keys, users and history")
		}

		l, err := ledger.Open(ctx, store, ledgerOptions(cfg, logger.L())...)
		if err != nil {
			log.Fatalf("failed to open ledger: %v", err)
		}

		if err := seed(ctx, l); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
	},
}

type seedUser struct {
	dto    user.CreateUserDTO
	active bool
}

var defaultUsers = []seedUser{
	{dto: user.CreateUserDTO{Name: "Администратор", Login: user.AdminLogin, Password: "admin", Role: string(user.RoleAdmin)}, active: true},
	{dto: user.CreateUserDTO{Name: "Иван Петров", Login: "ipetrov", Password: "user123", CardCode: "EMP001"}, active: true},
	{dto: user.CreateUserDTO{Name: "Анна Сидорова", Login: "asidorova", Password: "pass456", CardCode: "EMP002"}, active: false},
}

type seedKey struct {
	dto key.CreateKeyDTO
	// heldBy is the card code of the user the key starts out issued to.
	heldBy string
}

var defaultKeys = []seedKey{
	{dto: key.CreateKeyDTO{Name: "Офис 101", Barcode: "123456789", Location: "1 этаж"}},
	{dto: key.CreateKeyDTO{Name: "Склад А", Barcode: "987654321", Location: "Подвал"}, heldBy: "EMP001"},
	{dto: key.CreateKeyDTO{Name: "Кабинет директора", Barcode: "456789123", Location: "2 этаж"}},
}

func seed(ctx context.Context, l *ledger.Ledger) error {
	existing := map[string]bool{}
	for _, u := range l.ListUsers() {
		existing[u.Login] = true
	}

	for _, su := range defaultUsers {
		if existing[su.dto.Login] {
			fmt.Println("user already exists:", su.dto.Login)
			continue
		}
		u, err := l.AddUser(ctx, su.dto)
		if err != nil {
			return fmt.Errorf("failed to insert user %s: %w", su.dto.Login, err)
		}
		if !su.active {
			if _, err := l.ToggleUserActive(ctx, u.ID); err != nil {
				return fmt.Errorf("failed to deactivate user %s: %w", su.dto.Login, err)
			}
		}
		fmt.Println("Seeded user:", su.dto.Login)
	}

	for _, sk := range defaultKeys {
		dto := sk.dto
		_, err := l.FindKey(dto.Barcode)
		if err == nil {
			fmt.Println("key already exists:", dto.Barcode)
			continue
		}
		if !errors.Is(err, internal.ErrKeyNotFound) {
			return err
		}
		if _, err := l.AddKey(ctx, dto); err != nil {
			return fmt.Errorf("failed to insert key %s: %w", dto.Barcode, err)
		}
		fmt.Printf("Seeded key: %s (%s)\n", dto.Name, dto.Barcode)

		if sk.heldBy != "" {
			res, err := l.IssueKey(ctx, dto.Barcode, ledger.ByCardCode(sk.heldBy))
			if err != nil {
				return fmt.Errorf("failed to issue key %s to %s: %w", dto.Barcode, sk.heldBy, err)
			}
			fmt.Printf("Issued key %s to %s\n", dto.Barcode, res.HolderName)
		}
	}

	fmt.Println("Seeding complete")
	return nil
}
