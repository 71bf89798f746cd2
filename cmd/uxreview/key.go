package main

import (
	"bufio"
	"errors"
	"fmt"
	"sort"
	"strings"
	"uxreview/internal/config"
	"uxreview/internal/services"

	"github.com/spf13/cobra"
)

func newKeyCmd(opts *rootOptions) *cobra.Command {
	key := &cobra.Command{Use: "key", Short: "Manage provider API keys in the OS keyring"}

	var value string
	set := &cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key, read from --value or the first line of stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := opts.keyring(args[0])
			if err != nil {
				return err
			}
			secret := strings.TrimSpace(value)
			if secret == "" && opts.deps.stdin != nil {
				line, err := bufio.NewReader(opts.deps.stdin).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no API key given")
				}
				secret = strings.TrimSpace(line)
			}
			if secret == "" {
				return errors.New("no API key given")
			}
			if err := keys.StoreApiKey(args[0], []byte(secret)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s API key\n", args[0])
			return nil
		},
	}
	set.Flags().StringVar(&value, "value", "", "the API key")
	key.AddCommand(set)

	key.AddCommand(&cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := opts.keyring(args[0])
			if err != nil {
				return err
			}
			if err := keys.DeleteApiKey(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s API key\n", args[0])
			return nil
		},
	})

	key.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show which providers have a key configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := opts.keyring("")
			if err != nil {
				return err
			}
			providers := make([]string, 0, len(config.APIKeyEnv))
			for provider := range config.APIKeyEnv {
				providers = append(providers, provider)
			}
			sort.Strings(providers)
			for _, provider := range providers {
				source := "missing"
				if v := opts.deps.getenv; v != nil && strings.TrimSpace(v(config.APIKeyEnv[provider])) != "" {
					source = "env " + config.APIKeyEnv[provider]
				} else if stored, _ := keys.GetApiKey(provider); stored != "" {
					source = "keyring"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", provider, source)
			}
			return nil
		},
	})
	return key
}

// keyring opens the keyring service without touching the database. An empty
// provider skips the provider check.
func (o *rootOptions) keyring(provider string) (*services.KeyringService, error) {
	if _, ok := config.APIKeyEnv[provider]; provider != "" && !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	ring, err := o.deps.openRing()
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return services.NewKeyringService(ring), nil
}
