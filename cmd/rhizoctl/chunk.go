package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhizodata/rhizo/chunkstore"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "put/get raw chunks in the content-addressed store",
}

var chunkPutCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "write a file's contents as a chunk and print its hash",
	Args:  cobra.ExactArgs(1),
	RunE:  doChunkPut,
}

var chunkGetCmd = &cobra.Command{
	Use:   "get <hash>",
	Short: "print a chunk's contents to stdout, verifying its hash",
	Args:  cobra.ExactArgs(1),
	RunE:  doChunkGet,
}

func init() {
	chunkCmd.AddCommand(chunkPutCmd, chunkGetCmd)
	rootCmd.AddCommand(chunkCmd)
}

func openStore(cmd *cobra.Command) (*chunkstore.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return chunkstore.New(cfg.Root, chunkstore.WithConcurrency(cfg.ChunkConcurrency))
}

func doChunkPut(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	hash, err := store.Put(data)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func doChunkGet(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := store.GetVerified(args[0])
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
