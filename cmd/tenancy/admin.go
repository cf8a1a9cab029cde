package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/license"
	"github.com/tendant/simple-tenancy/tenancy"
)

var errNoDatabase = errors.New("DB_DRIVER is memory; set sqlite or postgres to manage stored data")

// withPlatform runs fn against the stored platform state. Changes made by fn
// are written through to the database.
func withPlatform(ctx context.Context, fn func(p *tenancy.Platform) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if !cfg.UsesDatabase() {
		return errNoDatabase
	}
	p, closeDB, err := openPlatform(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(p)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTenantCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "tenant", Short: "Manage tenants"}

	var name, provider, model string
	create := &cobra.Command{
		Use:   "create <id>",
		Short: "Create or replace a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlatform(cmd.Context(), func(p *tenancy.Platform) error {
				t, err := p.Directory.Create(cmd.Context(), &domain.Tenant{
					ID:          args[0],
					Name:        name,
					LLMProvider: provider,
					LLMModel:    model,
				})
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&provider, "llm-provider", "", "LLM provider")
	create.Flags().StringVar(&model, "llm-model", "", "LLM model")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlatform(cmd.Context(), func(p *tenancy.Platform) error {
				return printJSON(p.Directory.List())
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func newLicenseCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "license", Short: "Manage licenses"}

	var (
		licType          string
		maxUsers         int
		maxConversations int
		days             int
	)
	issue := &cobra.Command{
		Use:   "issue <tenant-id>",
		Short: "Issue a license and print its activation key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlatform(cmd.Context(), func(p *tenancy.Platform) error {
				if _, ok := p.Directory.Get(args[0]); !ok {
					return domain.ErrTenantNotFound
				}
				lic, key, err := p.Licenses.Create(cmd.Context(), license.CreateParams{
					TenantID:         args[0],
					Type:             domain.LicenseType(licType),
					MaxUsers:         maxUsers,
					MaxConversations: maxConversations,
					Days:             days,
				})
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"license": lic, "license_key": key})
			})
		},
	}
	issue.Flags().StringVar(&licType, "type", string(domain.LicenseStandard), "trial, standard, professional or enterprise")
	issue.Flags().IntVar(&maxUsers, "max-users", 10, "user ceiling")
	issue.Flags().IntVar(&maxConversations, "max-conversations", 100, "active conversation ceiling")
	issue.Flags().IntVar(&days, "days", license.DefaultDuration, "validity in days")

	var tenantID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List licenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlatform(cmd.Context(), func(p *tenancy.Platform) error {
				if tenantID != "" {
					return printJSON(p.Licenses.ListByTenant(tenantID))
				}
				return printJSON(p.Licenses.List())
			})
		},
	}
	list.Flags().StringVar(&tenantID, "tenant", "", "only this tenant's licenses")

	revoke := &cobra.Command{
		Use:   "revoke <license-id>",
		Short: "Permanently revoke a license",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlatform(cmd.Context(), func(p *tenancy.Platform) error {
				found, err := p.Licenses.Revoke(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !found {
					return domain.ErrLicenseNotFound
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(issue, list, revoke)
	return cmd
}
