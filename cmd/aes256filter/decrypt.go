package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aes256filter/internal/aes256/filter"
	"aes256filter/internal/aes256/hostio"
	"aes256filter/internal/aes256/mode"
)

func newDecryptCommand() *cobra.Command {
	var cfgDirFlag, inFlag, outFlag string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a file with the aes256 filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgData, err := resolveDecryptCfgData(cfgDirFlag)
			if err != nil {
				return err
			}

			cfgDir, meta, err := openHost(cfgDirFlag)
			if err != nil {
				return err
			}

			f, err := filter.DataPrepare(mode.Download, cfgData, inFlag, filter.Host{
				CfgDir:     cfgDir,
				CustomMeta: meta,
				Logger:     hostio.NewSlogLogger(newLogger()),
				Prompter:   hostio.NewTermPrompter(),
			})
			if err != nil {
				return fmt.Errorf("preparing decrypt session: %w", err)
			}
			defer f.DataFinish()

			return pumpFile(f, inFlag, outFlag)
		},
	}

	cmd.Flags().StringVar(&cfgDirFlag, "cfgdir", "", "per-volume local state directory (required)")
	cmd.Flags().StringVar(&inFlag, "in", "", "input file (required)")
	cmd.Flags().StringVar(&outFlag, "out", "", "output file (required)")

	for _, name := range []string{"cfgdir", "in", "out"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
