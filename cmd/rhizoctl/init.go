package main

import (
	"github.com/spf13/cobra"

	"github.com/rhizodata/rhizo/branch"
	"github.com/rhizodata/rhizo/catalog"
	"github.com/rhizodata/rhizo/chunkstore"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "create a store's on-disk layout under --root",
	RunE:  doInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func doInit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := chunkstore.New(cfg.Root)
	if err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return err
	}
	if _, err := catalog.New(cfg.Root); err != nil {
		return err
	}
	if _, err := branch.New(cfg.Root); err != nil {
		return err
	}

	logger.Info("initialized store", "root", cfg.Root)
	return nil
}
