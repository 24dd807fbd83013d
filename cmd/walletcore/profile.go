package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"WalletCore/internal/derivation"
	"WalletCore/internal/factors"
	"WalletCore/internal/logger"
	"WalletCore/internal/profile"
)

// profileCmd groups profile management commands.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the wallet profile",
}

// profileInitCmd creates a profile holding the configured sources.
var profileInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a profile with the configured factor sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		if _, err := w.store.Load(); err == nil {
			return fmt.Errorf("a profile already exists in %s", cfg.DataPath)
		} else if !errors.Is(err, profile.ErrNoProfile) {
			return err
		}

		p, err := profile.New(w.network, w.sources...)
		if err != nil {
			return err
		}

		if err := w.store.Save(p); err != nil {
			return err
		}

		logger.Info("profile created", "id", p.Header.ID, "network", p.Header.Network, "sources", p.FactorSources.Len())

		return nil
	},
}

// profileShowCmd prints the profile as JSON.
var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the profile as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		p, err := w.store.Load()
		if err != nil {
			return err
		}

		return printJSON(cmd, p)
	},
}

// addEntityFlags are the flags of profile add-account.
var addEntityFlags struct {
	source  string
	index   uint32
	name    string
	persona bool
}

// profileAddAccountCmd derives a key and adds an unsecured entity controlled by it.
var profileAddAccountCmd = &cobra.Command{
	Use:   "add-account",
	Short: "Derive a key and add an account or persona controlled by it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := factors.ParseFactorSourceID(addEntityFlags.source)
		if err != nil {
			return err
		}

		w, err := openWallet(cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.connect(cmd.Context()); err != nil {
			return err
		}

		p, err := w.loadProfile()
		if err != nil {
			return err
		}

		path := factors.NewAccountPath(w.network, addEntityFlags.index)
		purpose := derivation.CreatingNewAccount
		if addEntityFlags.persona {
			path = factors.NewIdentityPath(w.network, addEntityFlags.index)
			purpose = derivation.CreatingNewPersona
		}

		collector, err := derivation.NewKeysCollector(p.FactorSources,
			map[factors.FactorSourceID][]factors.DerivationPath{id: {path}},
			w.deriver, purpose,
			derivation.WithObserver(derivation.NewLogObserver(logger.With("component", "derivation"))),
		)
		if err != nil {
			return err
		}

		derived, err := collector.Collect(cmd.Context())
		if err != nil {
			return err
		}

		instances := derived.All()
		if len(instances) != 1 {
			return fmt.Errorf("expected one derived key, got %d", len(instances))
		}

		e, err := profile.NewUnsecuredEntity(addEntityFlags.name, instances[0])
		if err != nil {
			return err
		}

		if err := p.AddEntity(e); err != nil {
			return err
		}

		p.MarkFactorSourcesUsed([]factors.FactorSourceID{id}, time.Now().UTC())

		if err := w.store.Save(p); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), e.Address)

		return nil
	},
}

// profileExportCmd writes a backup file.
var profileExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a compressed, checksummed profile backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		data, err := w.store.ExportBackup()
		if err != nil {
			return err
		}

		if err := os.WriteFile(args[0], data, 0600); err != nil {
			return fmt.Errorf("write backup:\n%w", err)
		}

		logger.Info("profile exported", "file", args[0], "bytes", len(data))

		return nil
	},
}

// profileImportCmd replaces the profile with a backup.
var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Verify a backup and replace the profile with it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read backup:\n%w", err)
		}

		w, err := openWallet(cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		p, err := w.store.ImportBackup(data)
		if err != nil {
			return err
		}

		logger.Info("profile imported", "id", p.Header.ID, "accounts", len(p.Accounts), "personas", len(p.Personas))

		return nil
	},
}

func init() {
	f := profileAddAccountCmd.Flags()
	f.StringVar(&addEntityFlags.source, "source", "", "Factor source id (kind:hex)")
	f.Uint32Var(&addEntityFlags.index, "index", 0, "Key index")
	f.StringVar(&addEntityFlags.name, "name", "Account", "Display name")
	f.BoolVar(&addEntityFlags.persona, "persona", false, "Add a persona instead of an account")
	profileAddAccountCmd.MarkFlagRequired("source")

	profileCmd.AddCommand(profileInitCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAddAccountCmd)
	profileCmd.AddCommand(profileExportCmd)
	profileCmd.AddCommand(profileImportCmd)
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
