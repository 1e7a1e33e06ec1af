package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

var seedDefaults bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Writes content into the hosted database",
	Long: `The seed command writes section rows straight to the hosted database.
With --defaults every section is first written from the bundled defaults. Files
in the content directory named after a section ('hero.yaml', 'cta.md', ...)
then replace that section. Fields a file leaves out keep their default value;
the markdown body of a '.md' file becomes the section description.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.With(zap.String("module", "seed"))

		defaults, err := model.LoadDefaults(appConfig.DefaultsFile)
		if err != nil {
			return fmt.Errorf("load defaults: %w", err)
		}
		rows, err := seedRows(appConfig.ContentDir, defaults, seedDefaults)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("nothing to seed: no section files in '%s' and --defaults not set", appConfig.ContentDir)
		}

		r, err := openRemote(ctx, appConfig, logger.With(zap.String("module", "remote")))
		if err != nil {
			return err
		}
		if r == nil {
			return errors.New("remote.dsn is not configured")
		}
		defer r.Close()

		for _, row := range rows {
			if err := r.Upsert(ctx, row); err != nil {
				return fmt.Errorf("seed %s: %w", row.Key, err)
			}
			log.Info("section written", zap.String("section", row.Key))
		}
		return nil
	},
}

// seedRows collects one row per section: defaults first when withDefaults is
// set, then any section file in dir. A later row for the same section wins.
func seedRows(dir string, defaults *model.Content, withDefaults bool) ([]model.Row, error) {
	byKey := make(map[model.SectionKey]model.Row)
	if withDefaults {
		rows, err := defaults.Rows()
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			byKey[model.SectionKey(row.Key)] = row
		}
	}

	if isDir(dir) {
		for _, key := range model.Sections() {
			path, ok := sectionFile(dir, key)
			if !ok {
				continue
			}
			rec, err := readSectionFile(path, key, defaults)
			if err != nil {
				return nil, err
			}
			row, err := model.EncodeSection(key, rec)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			byKey[key] = row
		}
	}

	rows := make([]model.Row, 0, len(byKey))
	for _, key := range model.Sections() {
		if row, ok := byKey[key]; ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

var sectionExts = []string{".yaml", ".yml", ".md"}

func sectionFile(dir string, key model.SectionKey) (string, bool) {
	for _, ext := range sectionExts {
		path := filepath.Join(dir, key.String()+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// readSectionFile decodes a section file over a copy of the default record.
func readSectionFile(path string, key model.SectionKey, defaults *model.Content) (any, error) {
	rec, err := defaultRecord(key, defaults)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	if !strings.EqualFold(filepath.Ext(path), ".md") {
		if err := yaml.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return rec, nil
	}

	body, err := frontmatter.Parse(bytes.NewReader(data), rec)
	if err != nil {
		return nil, fmt.Errorf("%s: front matter: %w", path, err)
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		desc := reflect.ValueOf(rec).Elem().FieldByName("Description")
		if !desc.IsValid() || desc.Kind() != reflect.String {
			return nil, fmt.Errorf("%s: section %s has no description for the markdown body", path, key)
		}
		desc.SetString(text)
	}
	return rec, nil
}

// defaultRecord returns a pointer to a copy of the section's default record.
func defaultRecord(key model.SectionKey, defaults *model.Content) (any, error) {
	rec, err := model.NewRecord(key)
	if err != nil {
		return nil, err
	}
	def, err := defaults.Section(key)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func init() {
	seedCmd.Flags().BoolVar(&seedDefaults, "defaults", false, "write the bundled defaults for every section first")
	rootCmd.AddCommand(seedCmd)
}
