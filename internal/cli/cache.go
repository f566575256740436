package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/tensorgen/internal/store"
)

// CacheOptions holds flags for the cache commands.
type CacheOptions struct {
	*RootOptions
	DB string
}

// CacheEntry is one artifact in JSON output.
type CacheEntry struct {
	Seq              int64            `json:"seq"`
	ID               string           `json:"id"`
	Module           string           `json:"module"`
	Hash             string           `json:"hash"`
	IRVersion        string           `json:"ir_version"`
	GeneratorVersion string           `json:"generator_version"`
	TargetTriple     string           `json:"target_triple,omitempty"`
	Functions        []CachedFunction `json:"functions"`
	Text             string           `json:"text,omitempty"`
}

// CachedFunction is one function of a cached artifact.
type CachedFunction struct {
	Name   string   `json:"name"`
	Hash   string   `json:"hash"`
	Params []string `json:"params"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the artifact cache",
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "artifact cache database (default: config cache)")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List cached modules in build order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <hash>",
		Short:         "Print a cached module",
		Long:          "Print a cached module by hash. Any unique prefix of the hash is accepted.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheShow(opts, args[0], cmd)
		},
	})

	return cmd
}

func openCache(opts *CacheOptions, formatter *OutputFormatter) (*store.Store, error) {
	path := pick(opts.DB, opts.config().Cache)
	if path == "" {
		return nil, formatter.Fail(ExitCommandError, ErrCodeInvalidConfig, "no cache database: pass --db or set cache in the config file", nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error(), nil)
	}
	return st, nil
}

func runCacheList(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	st, err := openCache(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	artifacts, err := st.ListArtifacts(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error(), nil)
	}

	entries := make([]CacheEntry, 0, len(artifacts))
	for _, a := range artifacts {
		fns, err := st.Functions(ctx, a.ID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error(), nil)
		}
		a.Functions = fns
		entries = append(entries, cacheEntry(a, false))
	}

	if formatter.IsJSON() {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "Cache is empty")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tMODULE\tHASH\tFUNCTIONS\tTARGET\tID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", e.Seq, e.Module, shortHash(e.Hash), len(e.Functions), e.TargetTriple, e.ID)
	}
	return tw.Flush()
}

func runCacheShow(opts *CacheOptions, hash string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	st, err := openCache(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	full, err := resolveHash(cmd, st, hash)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, err.Error(), nil)
	}
	a, found, err := st.LookupArtifact(ctx, full)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error(), nil)
	}
	if !found {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no cached module with hash %s", hash), nil)
	}

	if formatter.IsJSON() {
		return formatter.Success(cacheEntry(a, true))
	}
	fmt.Fprintf(formatter.Writer, "; module %s (seq %d, %s)\n", a.ModuleName, a.Seq, a.ID)
	fmt.Fprint(formatter.Writer, a.Text)
	return nil
}

// resolveHash expands a unique hash prefix to the full hash.
func resolveHash(cmd *cobra.Command, st *store.Store, prefix string) (string, error) {
	artifacts, err := st.ListArtifacts(cmd.Context())
	if err != nil {
		return "", err
	}
	var matches []string
	for _, a := range artifacts {
		if a.ModuleHash == prefix {
			return prefix, nil
		}
		if strings.HasPrefix(a.ModuleHash, prefix) {
			matches = append(matches, a.ModuleHash)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no cached module with hash %s", prefix)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("hash prefix %s is ambiguous (%d matches)", prefix, len(matches))
}

func cacheEntry(a store.Artifact, withText bool) CacheEntry {
	e := CacheEntry{
		Seq:              a.Seq,
		ID:               a.ID,
		Module:           a.ModuleName,
		Hash:             a.ModuleHash,
		IRVersion:        a.IRVersion,
		GeneratorVersion: a.GeneratorVersion,
		TargetTriple:     a.TargetTriple,
		Functions:        make([]CachedFunction, 0, len(a.Functions)),
	}
	for _, f := range a.Functions {
		params := f.Params
		if params == nil {
			params = []string{}
		}
		e.Functions = append(e.Functions, CachedFunction{Name: f.Name, Hash: f.Hash, Params: params})
	}
	if withText {
		e.Text = a.Text
	}
	return e
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}
