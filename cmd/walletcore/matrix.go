package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"WalletCore/internal/factors"
	"WalletCore/internal/logger"
	"WalletCore/internal/matrix"
	"WalletCore/internal/profile"
)

// roleFile is one role of a matrix file.
type roleFile struct {
	Threshold        uint8                    `toml:"threshold"`
	ThresholdFactors []factors.FactorSourceID `toml:"threshold_factors"`
	OverrideFactors  []factors.FactorSourceID `toml:"override_factors"`
}

// matrixFile is a security structure described in TOML.
type matrixFile struct {
	Name                 string                 `toml:"name"`
	DaysUntilAutoConfirm uint16                 `toml:"days_until_auto_confirm"`
	AuthenticationSigner factors.FactorSourceID `toml:"authentication_signer"`
	Primary              roleFile               `toml:"primary"`
	Recovery             roleFile               `toml:"recovery"`
	Confirmation         roleFile               `toml:"confirmation"`
}

// matrixFlags are the flags of matrix check.
var matrixFlags struct {
	save bool
}

// matrixCmd groups security structure commands.
var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Work with security structures",
}

// matrixCheckCmd validates a matrix file against the profile.
var matrixCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a matrix file, optionally saving it as a security structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mf matrixFile
		if _, err := toml.DecodeFile(args[0], &mf); err != nil {
			return fmt.Errorf("decode matrix %s:\n%w", args[0], err)
		}

		b := buildMatrix(mf)

		result := b.Validate()
		fmt.Fprintln(cmd.OutOrStdout(), result)

		if !result.IsValid() {
			return result.Err()
		}

		m, err := b.Build()
		if err != nil {
			return err
		}

		w, err := openWallet(cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		return w.store.Update(func(p *profile.Profile) error {
			if _, err := matrix.ResolveMatrix(m, p.FactorSources); err != nil {
				return fmt.Errorf("resolve against profile:\n%w", err)
			}

			if !matrixFlags.save {
				return nil
			}

			s, err := matrix.NewSecurityStructure(mf.Name, m, mf.AuthenticationSigner)
			if err != nil {
				return err
			}

			if err := p.AddSecurityStructure(s); err != nil {
				return err
			}

			logger.Info("security structure saved", "id", s.ID(), "name", mf.Name)

			return nil
		})
	},
}

// buildMatrix fills a builder from the file.
func buildMatrix(mf matrixFile) *matrix.MatrixBuilder {
	b := matrix.NewMatrixBuilder()

	b.Primary().WithFactors(mf.Primary.Threshold, mf.Primary.ThresholdFactors, mf.Primary.OverrideFactors)
	b.Recovery().WithFactors(mf.Recovery.Threshold, mf.Recovery.ThresholdFactors, mf.Recovery.OverrideFactors)
	b.Confirmation().WithFactors(mf.Confirmation.Threshold, mf.Confirmation.ThresholdFactors, mf.Confirmation.OverrideFactors)

	if mf.DaysUntilAutoConfirm != 0 {
		b.SetDaysUntilAutoConfirm(mf.DaysUntilAutoConfirm)
	}

	return b
}

func init() {
	matrixCheckCmd.Flags().BoolVar(&matrixFlags.save, "save", false, "Save the matrix as a security structure in the profile")

	matrixCmd.AddCommand(matrixCheckCmd)
}
