// Package main is a cobra-based host harness for the aes256 filter: it
// plays the role of the enclosing volume-creation layer for manual and
// integration testing, wiring real files, a JSON custom-meta stand-in,
// and an interactive terminal prompt into the filter core.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"aes256filter/internal/aes256/hostio"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aes256filter",
		Short: "aes256 streaming encryption filter",
		Long: `aes256filter drives the aes256 streaming encryption filter directly
against local files, standing in for the volume-creation layer and
host services a real integration would supply.`,
	}

	rootCmd.AddCommand(newEncryptCommand())
	rootCmd.AddCommand(newDecryptCommand())
	rootCmd.AddCommand(newFingerprintCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func openHost(cfgDir string) (hostio.ConfigDir, *hostio.JSONMetaStore, error) {
	if err := os.MkdirAll(cfgDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating config directory: %w", err)
	}

	meta, err := hostio.NewJSONMetaStore(cfgDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading custom-meta store: %w", err)
	}

	return hostio.NewFSConfigDir(cfgDir), meta, nil
}
