package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ctxrank/internal/config"
	"ctxrank/internal/errors"
	"ctxrank/internal/logging"
	"ctxrank/internal/snapshot"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ctxrank configuration",
	Long:  "Creates a .ctxrank/ directory with default configuration in the current repository root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes existing .ctxrank directory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.LevelInfo,
	})

	// Get current directory
	cwd, err := os.Getwd()
	if err != nil {
		return errors.NewCtxError(errors.InternalError, "Failed to get current directory", err, nil)
	}

	// The diff provider needs a git worktree; everything else still works.
	if !snapshot.IsRepository(cwd) {
		logger.Warn("Not inside a git repository; the diff provider will be unavailable", nil)
	}

	// Check if .ctxrank already exists
	ctxDir := filepath.Join(cwd, ".ctxrank")
	if _, statErr := os.Stat(ctxDir); statErr == nil {
		if !initForce {
			// Idempotent behavior: already initialized is success (CI-friendly)
			fmt.Println("ctxrank already initialized.")
			fmt.Printf("Configuration at: %s\n", filepath.Join(ctxDir, "config.json"))
			fmt.Println("\nRun 'ctxrank init --force' to reinitialize.")
			return nil
		}
		// Remove existing directory
		if removeErr := os.RemoveAll(ctxDir); removeErr != nil {
			return errors.NewCtxError(errors.InternalError, "Failed to remove existing .ctxrank directory", removeErr, nil)
		}
		logger.Info("Removed existing .ctxrank directory", nil)
	}

	// Create .ctxrank directory
	if mkdirErr := os.MkdirAll(ctxDir, 0755); mkdirErr != nil {
		return errors.NewCtxError(errors.InternalError, "Failed to create .ctxrank directory", mkdirErr, nil)
	}

	// Write default config
	cfg := config.DefaultConfig()
	cfg.RepoRoot = "."
	if saveErr := cfg.Save(cwd); saveErr != nil {
		return errors.NewCtxError(errors.InternalError, "Failed to write config file", saveErr, nil)
	}
	configPath := filepath.Join(ctxDir, "config.json")

	logger.Info("ctxrank initialized successfully", logging.Fields{
		"config_path": configPath,
	})

	fmt.Println("ctxrank initialized successfully!")
	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Generate a SCIP index for symbol evidence (optional):")
	fmt.Println("     scip-go --output=.ctxrank/index.scip ./...")
	fmt.Println("  2. Run 'ctxrank retrieve --task \"describe your task\"'")

	return nil
}
