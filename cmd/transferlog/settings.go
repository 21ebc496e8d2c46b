package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/saltyorg/transferlog/internal/config"
)

// settingsStore is the part of the database the settings commands touch
type settingsStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
	GetAllSettings() (map[string]string, error)
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change runtime settings stored in the database",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List known settings and their stored values",
			Args:  cobra.NoArgs,
			RunE: withSettings(func(cmd *cobra.Command, store settingsStore, args []string) error {
				return listSettings(cmd.OutOrStdout(), store)
			}),
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: withSettings(func(cmd *cobra.Command, store settingsStore, args []string) error {
				return getSetting(cmd.OutOrStdout(), store, args[0])
			}),
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store a setting; takes effect on the next serve",
			Args:  cobra.ExactArgs(2),
			RunE: withSettings(func(cmd *cobra.Command, store settingsStore, args []string) error {
				return setSetting(store, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Remove a setting so its default applies again",
			Args:  cobra.ExactArgs(1),
			RunE: withSettings(func(cmd *cobra.Command, store settingsStore, args []string) error {
				return unsetSetting(store, args[0])
			}),
		},
	)

	return cmd
}

func withSettings(fn func(cmd *cobra.Command, store settingsStore, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(cmd, db, args)
	}
}

func checkSettingKey(key string) error {
	if key == config.KeyAPIKeyHash {
		return fmt.Errorf("%s is managed by 'transferlog apikey'", key)
	}
	if _, ok := config.SettingDescriptions[key]; !ok {
		return fmt.Errorf("unknown setting %q; run 'transferlog settings list' for the known keys", key)
	}
	return nil
}

func listSettings(w io.Writer, store settingsStore) error {
	stored, err := store.GetAllSettings()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(config.SettingDescriptions))
	for key := range config.SettingDescriptions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value, ok := stored[key]
		if !ok {
			value = "(default)"
		}
		fmt.Fprintf(w, "%-24s %-16s %s\n", key, value, config.SettingDescriptions[key])
	}
	return nil
}

func getSetting(w io.Writer, store settingsStore, key string) error {
	if err := checkSettingKey(key); err != nil {
		return err
	}
	value, err := store.GetSetting(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, value)
	return nil
}

func setSetting(store settingsStore, key, value string) error {
	if err := checkSettingKey(key); err != nil {
		return err
	}
	return store.SetSetting(key, value)
}

func unsetSetting(store settingsStore, key string) error {
	if err := checkSettingKey(key); err != nil {
		return err
	}
	return store.DeleteSetting(key)
}
