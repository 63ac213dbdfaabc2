package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"aes256filter/internal/aes256/filter"
	"aes256filter/internal/aes256/hostio"
	"aes256filter/internal/aes256/mode"
	"aes256filter/internal/aes256/stream"
)

func newEncryptCommand() *cobra.Command {
	var cfgDirFlag, inFlag, outFlag, saltFlag string

	var nogenkey, paranoid bool

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a file with the aes256 filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			if nogenkey && paranoid {
				return fmt.Errorf("--nogenkey and --paranoid are mutually exclusive")
			}

			cfgDir, meta, err := openHost(cfgDirFlag)
			if err != nil {
				return err
			}

			cfgData, isDefault, err := resolveEncryptCfgData(cfgDirFlag, paranoid, nogenkey, saltFlag)
			if err != nil {
				return err
			}

			f, err := filter.DataPrepare(mode.Upload, cfgData, inFlag, filter.Host{
				CfgDir:     cfgDir,
				CustomMeta: meta,
				Logger:     hostio.NewSlogLogger(newLogger()),
				Prompter:   hostio.NewTermPrompter(),
			})
			if err != nil {
				return fmt.Errorf("preparing encrypt session: %w", err)
			}
			defer f.DataFinish()

			if err := pumpFile(f, inFlag, outFlag); err != nil {
				return err
			}

			if isDefault {
				return persistEncryptCfgData(cfgDirFlag, meta)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&cfgDirFlag, "cfgdir", "", "per-volume local state directory (required)")
	cmd.Flags().StringVar(&inFlag, "in", "", "input file (required)")
	cmd.Flags().StringVar(&outFlag, "out", "", "output file (required)")
	cmd.Flags().BoolVar(&nogenkey, "nogenkey", false, "never inherit a key cache from cfgdata; fingerprint lives only in custom-meta")
	cmd.Flags().BoolVar(&paranoid, "paranoid", false, "never cache the derived key or a fingerprint; prompt every session")
	cmd.Flags().StringVar(&saltFlag, "salt", "", "force a specific 32-hex-char (16-byte) salt on first use")

	for _, name := range []string{"cfgdir", "in", "out"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// pumpFile drives a prepared filter over the entirety of in, writing to
// out, using a caller-buffer-sized loop in the shape a real integration
// would use.
func pumpFile(f *filter.Filter, inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	const chunkSize = 64 * 1024

	inBuf := make([]byte, chunkSize)
	outBuf := make([]byte, chunkSize)

	action := stream.Normal

	for {
		n, readErr := in.Read(inBuf)
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("reading input: %w", readErr)
		}

		cur := inBuf[:n]
		if readErr == io.EOF {
			action = stream.DataEnd
		}

		for {
			written, next, procErr := f.DataProcess(cur, action, outBuf)
			if procErr != nil {
				return fmt.Errorf("processing data: %w", procErr)
			}

			if written > 0 {
				if _, writeErr := out.Write(outBuf[:written]); writeErr != nil {
					return fmt.Errorf("writing output: %w", writeErr)
				}
			}

			if next != stream.Repeat {
				action = next
				break
			}

			action = stream.Repeat
		}

		if readErr == io.EOF {
			return nil
		}
	}
}
