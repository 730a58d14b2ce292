package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/database"
)

func newCreateAdminCmd() *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Een beheerdersaccount aanmaken",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if role != models.ROLE_ADMIN && role != models.ROLE_SUPER_ADMIN {
				return fmt.Errorf("rol moet %s of %s zijn", models.ROLE_ADMIN, models.ROLE_SUPER_ADMIN)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database.SetupDatabase(cfg.DB, cfg.IsDev())
			users := repository.NewFactory(database.GetDB()).GetUserRepository()

			email = strings.ToLower(strings.TrimSpace(email))
			if _, err := users.GetByEmail(email); err == nil {
				return fmt.Errorf("gebruiker %s bestaat al", email)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("gebruiker opzoeken: %w", err)
			}

			user, err := models.NewUser(name, email, password, role)
			if err != nil {
				return fmt.Errorf("ongeldige gegevens: %w", err)
			}
			if err := users.Create(user); err != nil {
				return fmt.Errorf("gebruiker opslaan: %w", err)
			}
			log.Infow("[agencyctl] admin created", "id", user.ID, "email", user.Email, "role", user.Role)
			cmd.Printf("Account %s (%s) aangemaakt met id %d\n", user.Email, user.Role, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "volledige naam")
	cmd.Flags().StringVar(&email, "email", "", "e-mailadres")
	cmd.Flags().StringVar(&password, "password", "", "wachtwoord (standaard $ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&role, "role", models.ROLE_SUPER_ADMIN, "admin of super_admin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
