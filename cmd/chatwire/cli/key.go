package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatwire/chatwire/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, revoke, and regenerate API keys used to authenticate against the chatwire REST API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())
	cmd.AddCommand(newKeyRegenerateCmd())
	cmd.AddCommand(newKeyDeleteCmd())

	return cmd
}

// openKeyService builds a KeyService over the local key store for CLI use.
func openKeyService() (*service.KeyService, error) {
	store, err := openKeyStore()
	if err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewKeyService(store, logger), nil
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		name        string
		description string
		permissions []string
		expiresIn   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key. The raw secret is shown once and cannot be retrieved again.",
		Example: `  chatwire key create --name "CI pipeline" --permissions messages:send
  chatwire key create --name backoffice --permissions messages:send,webhooks:manage --expires-in 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := openKeyService()
			if err != nil {
				return err
			}

			params := service.CreateKeyParams{
				Name:        name,
				Description: description,
				Permissions: permissions,
			}
			if expiresIn > 0 {
				t := time.Now().UTC().Add(expiresIn)
				params.ExpiresAt = &t
			}

			key, err := keys.Create(params)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "API key created.\n\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  id:          %s\n", key.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  name:        %s\n", key.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "  permissions: %s\n", strings.Join(key.Permissions, ", "))
			fmt.Fprintf(cmd.OutOrStdout(), "  secret:      %s\n\n", key.Secret)
			fmt.Fprintln(cmd.OutOrStdout(), "Store the secret now; it will only ever be shown masked from here on.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Human-readable name for the key (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description of what the key is for")
	cmd.Flags().StringSliceVar(&permissions, "permissions", nil, "Granted scopes (default: full access)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Expiry relative to now, e.g. 720h (default: never)")
	cmd.MarkFlagRequired("name")

	return cmd
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := openKeyService()
			if err != nil {
				return err
			}
			records, err := keys.List()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSECRET\tACTIVE\tUSES\tEXPIRES")
			for i := range records {
				v := records[i].View()
				expires := "never"
				if v.ExpiresAt != nil {
					expires = v.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%s\n",
					v.ID, v.Name, v.MaskedSecret, v.IsActive, v.UsageCount, expires)
			}
			return tw.Flush()
		},
	}
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := openKeyService()
			if err != nil {
				return err
			}
			key, err := keys.Revoke(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked key %s (%s)\n", key.ID, key.Name)
			return nil
		},
	}
}

// ---------- key regenerate ----------

func newKeyRegenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <key-id>",
		Short: "Replace an API key's secret",
		Long:  "Generate a new secret for the key. The old secret stops working immediately.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := openKeyService()
			if err != nil {
				return err
			}
			key, err := keys.Regenerate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "New secret for %s (%s):\n\n  %s\n\n", key.ID, key.Name, key.Secret)
			fmt.Fprintln(cmd.OutOrStdout(), "The previous secret is no longer valid.")
			return nil
		},
	}
}

// ---------- key delete ----------

func newKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := openKeyService()
			if err != nil {
				return err
			}
			if err := keys.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted key %s\n", args[0])
			return nil
		},
	}
}
