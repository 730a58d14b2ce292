package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Databasemigraties beheren",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "migrations", "map met migraties (per driver een submap)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Alle openstaande migraties uitvoeren",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(dir, func(m *migrate.Migrate) error {
				err := m.Up()
				if errors.Is(err, migrate.ErrNoChange) {
					log.Info("Geen wijzigingen: database is up-to-date")
					return nil
				}
				if err != nil {
					return fmt.Errorf("migraties uitvoeren: %w", err)
				}
				log.Info("Migraties uitgevoerd")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Laatste migratie terugdraaien",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(dir, func(m *migrate.Migrate) error {
				if err := m.Steps(-1); err != nil {
					return fmt.Errorf("migratie terugdraaien: %w", err)
				}
				log.Info("Laatste migratie teruggedraaid")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "goto VERSION",
		Short: "Naar een specifieke versie migreren",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("ongeldige versie %q: %w", args[0], err)
			}
			return withMigrator(dir, func(m *migrate.Migrate) error {
				if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migreren naar versie %d: %w", version, err)
				}
				log.Infof("Gemigreerd naar versie %d", version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Huidige migratieversie tonen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(dir, func(m *migrate.Migrate) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					cmd.Println("Nog geen migraties uitgevoerd")
					return nil
				}
				if err != nil {
					return fmt.Errorf("versie opvragen: %w", err)
				}
				cmd.Printf("Versie: %d, dirty: %v\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(dir string, fn func(m *migrate.Migrate) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	driver := strings.ToLower(cfg.DB.Driver)
	log.Infof("Verbinden met %s database %s@%s:%s/%s", driver, cfg.DB.User, cfg.DB.Host, cfg.DB.DBPort(), cfg.DB.Name)

	m, err := migrate.New("file://"+strings.TrimSuffix(dir, "/")+"/"+driver, database.MigrateURL(cfg.DB))
	if err != nil {
		return fmt.Errorf("migratie initialiseren: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Warnf("Migratiebronnen sluiten: %v, %v", sourceErr, dbErr)
		}
	}()
	return fn(m)
}
