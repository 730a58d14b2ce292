package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/database"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/documents"
)

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Cursor-prompts en offertedocumenten exporteren",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "automation ID",
		Short: "Prompt voor een automatiseringsintake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			intakes, _, err := openIntakes()
			if err != nil {
				return err
			}
			in, err := intakes.GetAutomationByID(id)
			if err != nil {
				return fmt.Errorf("intake %d: %w", id, err)
			}
			out, err := documents.AutomationPrompt(in).Render()
			if err != nil {
				return err
			}
			cmd.Print(out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "quote ID|REF",
		Short: "Prompt voor een offerteaanvraag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intakes, _, err := openIntakes()
			if err != nil {
				return err
			}
			q, err := findQuote(intakes, args[0])
			if err != nil {
				return err
			}
			out, err := documents.QuotePrompt(q).Render()
			if err != nil {
				return err
			}
			cmd.Print(out)
			return nil
		},
	})

	var company string
	document := &cobra.Command{
		Use:   "document ID|REF",
		Short: "Offertedocument als Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intakes, cfg, err := openIntakes()
			if err != nil {
				return err
			}
			q, err := findQuote(intakes, args[0])
			if err != nil {
				return err
			}
			if company == "" {
				company = cfg.App.CompanyName
			}
			out, err := documents.NewQuoteDocument(q, company).Markdown()
			if err != nil {
				return err
			}
			cmd.Print(out)
			return nil
		},
	}
	document.Flags().StringVar(&company, "company", "", "bedrijfsnaam in de kop (standaard APP_COMPANY_NAME)")
	cmd.AddCommand(document)

	return cmd
}

func openIntakes() (repository.IntakeRepository, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	database.SetupDatabase(cfg.DB, cfg.IsDev())
	return repository.NewFactory(database.GetDB()).GetIntakeRepository(), cfg, nil
}

// findQuote accepts a numeric id or a reference such as Q-01J....
func findQuote(intakes repository.IntakeRepository, arg string) (*models.QuoteRequest, error) {
	if id, err := strconv.ParseUint(arg, 10, 64); err == nil {
		q, err := intakes.GetQuoteByID(uint(id))
		if err != nil {
			return nil, fmt.Errorf("offerte %d: %w", id, err)
		}
		return q, nil
	}
	ref := strings.ToUpper(strings.TrimSpace(arg))
	q, err := intakes.GetQuoteByReference(ref)
	if err != nil {
		return nil, fmt.Errorf("offerte %s: %w", ref, err)
	}
	return q, nil
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("ongeldig id %q", arg)
	}
	return uint(id), nil
}
