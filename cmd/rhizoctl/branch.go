package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rhizodata/rhizo/branch"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "inspect and create branches",
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "list every branch name",
	RunE:  doBranchList,
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "create a branch, copying its parent's head",
	Args:  cobra.ExactArgs(1),
	RunE:  doBranchCreate,
}

var branchShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "print a branch's head (table -> version)",
	Args:  cobra.ExactArgs(1),
	RunE:  doBranchShow,
}

var branchFrom string

func init() {
	branchCreateCmd.Flags().StringVar(&branchFrom, "from", branch.DefaultBranch, "parent branch to copy the head from")
	branchCmd.AddCommand(branchListCmd, branchCreateCmd, branchShowCmd)
	rootCmd.AddCommand(branchCmd)
}

func openBranches(cmd *cobra.Command) (*branch.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return branch.New(cfg.Root)
}

func doBranchList(cmd *cobra.Command, _ []string) error {
	mgr, err := openBranches(cmd)
	if err != nil {
		return err
	}
	names, err := mgr.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func doBranchCreate(cmd *cobra.Command, args []string) error {
	mgr, err := openBranches(cmd)
	if err != nil {
		return err
	}
	parent := branchFrom
	return mgr.Create(args[0], &parent, nil)
}

func doBranchShow(cmd *cobra.Command, args []string) error {
	mgr, err := openBranches(cmd)
	if err != nil {
		return err
	}
	b, err := mgr.Get(args[0])
	if err != nil {
		return err
	}

	tables := make([]string, 0, len(b.Head))
	for t := range b.Head {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Printf("%s\t%d\n", t, b.Head[t])
	}
	return nil
}
