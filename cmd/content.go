package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/aselya-coder/PraktisiMengajar/internal/cache"
	"github.com/aselya-coder/PraktisiMengajar/internal/model"
	"github.com/aselya-coder/PraktisiMengajar/internal/store"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Inspects the site content",
}

var contentShowCmd = &cobra.Command{
	Use:   "show [section]",
	Short: "Prints the loaded content as YAML",
	Long: `The show command runs the same load as the server (database, then cache,
then bundled defaults) and prints either the whole content or one section.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: sectionNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key model.SectionKey
		if len(args) == 1 {
			k, err := model.ParseSectionKey(args[0])
			if err != nil {
				return err
			}
			key = k
		}

		a, err := newApp(cmd.Context(), appConfig, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		res := a.load(cmd.Context())

		var v any = a.store.Content()
		if key != "" {
			if v, err = a.store.Section(key); err != nil {
				return err
			}
		}
		return writeContent(cmd.OutOrStdout(), res.Source, v)
	},
}

var contentRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Loads the content and reports which source was used",
	Long: `The refresh command loads the content once and reports the outcome. A
successful database load also rewrites the local cache.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appConfig, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return writeLoadResult(cmd.OutOrStdout(), a.load(cmd.Context()))
	},
}

func writeContent(w io.Writer, source store.Source, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# source: %s\n", source); err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func writeLoadResult(w io.Writer, res store.LoadResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "source: %s\n", res.Source)
	if res.RemoteErr != nil && !errors.Is(res.RemoteErr, store.ErrRemoteNotConfigured) {
		fmt.Fprintf(&b, "database: %v\n", res.RemoteErr)
	}
	if res.CacheErr != nil && !errors.Is(res.CacheErr, cache.ErrMiss) {
		fmt.Fprintf(&b, "cache: %v\n", res.CacheErr)
	}
	for _, k := range res.Missing {
		fmt.Fprintf(&b, "missing: %s (using default)\n", k)
	}
	for _, k := range res.Ignored {
		fmt.Fprintf(&b, "ignored row: %s\n", k)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if res.Source != store.SourceRemote {
		return fmt.Errorf("content not loaded from the database (using %s)", res.Source)
	}
	return nil
}

func sectionNames() []string {
	keys := model.Sections()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return names
}

func init() {
	contentCmd.AddCommand(contentShowCmd, contentRefreshCmd)
	rootCmd.AddCommand(contentCmd)
}
