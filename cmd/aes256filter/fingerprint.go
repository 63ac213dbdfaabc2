package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"aes256filter/internal/aes256/hostio"
	"aes256filter/internal/aes256/session"
	"aes256filter/internal/shared/crypto/fingerprint"
)

func newFingerprintCommand() *cobra.Command {
	var cfgDirFlag string

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the stored fingerprint's salts, for diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := hostio.NewJSONMetaStore(cfgDirFlag)
			if err != nil {
				return fmt.Errorf("loading custom-meta store: %w", err)
			}

			record, ok := meta.Get("aes256_fp")
			if !ok {
				return fmt.Errorf("no fingerprint has been established in %s yet", cfgDirFlag)
			}

			if len(record) != session.SaltSize+fingerprint.Size {
				return fmt.Errorf("stored fingerprint record has unexpected length %d", len(record))
			}

			configSalt := record[:session.SaltSize]
			fpSalt := record[session.SaltSize : session.SaltSize+fingerprint.SaltSize]

			fmt.Printf("config salt: %s\n", hex.EncodeToString(configSalt))
			fmt.Printf("fingerprint salt: %s\n", hex.EncodeToString(fpSalt))

			return nil
		},
	}

	cmd.Flags().StringVar(&cfgDirFlag, "cfgdir", "", "per-volume local state directory (required)")
	_ = cmd.MarkFlagRequired("cfgdir")

	return cmd
}
