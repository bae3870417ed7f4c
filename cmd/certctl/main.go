package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	v1 "devfest-certs/certificate-portal/certificate-portal-backend/api/v1"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/config"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/database"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/storage"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "certctl",
		Short:         "Operate the certificate portal from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "config.json", "Path to the JSON config file")

	// Add subcommands
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(issueCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	return rootCmd
}

// app is the wired service graph shared by commands that touch the store.
type app struct {
	*v1.API
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func (a *app) Close() {
	a.logger.Sync()
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func openApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	var objects storage.S3Client
	if cfg.Storage.Bucket != "" {
		objects, err = storage.NewS3Client(context.Background(), storage.S3Options{
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
	}

	api, err := v1.NewServices(cfg, db, objects, logger, nil)
	if err != nil {
		return nil, err
	}
	return &app{API: api, config: cfg, logger: logger, db: db}, nil
}
