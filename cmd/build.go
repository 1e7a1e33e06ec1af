package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Exports the site as static files",
	Long: `The build command loads the site content (database, then cache, then the
bundled defaults), renders the home page to '<outputDir>/index.html', writes the
content document to '<outputDir>/content.json' and copies static assets from
the configured static directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appConfig, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return runBuildProcess(cmd.Context(), a)
	},
}

func runBuildProcess(ctx context.Context, a *app) error {
	cfg := a.cfg
	log := a.log.With(zap.String("module", "build"))
	log.Info("starting build",
		zap.String("output_dir", cfg.OutputDir),
		zap.String("base_url", cfg.BaseURL),
		zap.String("site_title", cfg.SiteTitle),
	)

	renderer, err := a.renderer()
	if err != nil {
		return err
	}
	res := a.load(ctx)

	content := a.store.Content()
	var page bytes.Buffer
	if err := renderer.Home(&page, model.PageData{
		SiteTitle: cfg.SiteTitle,
		BaseURL:   cfg.BaseURL,
		Content:   content,
	}); err != nil {
		return fmt.Errorf("failed to render home page: %w", err)
	}
	doc, err := model.Encode(content)
	if err != nil {
		return err
	}

	outputDir := cfg.OutputDir
	if err := os.RemoveAll(outputDir); err != nil {
		return fmt.Errorf("failed to remove output directory '%s': %w", outputDir, err)
	}
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory '%s': %w", outputDir, err)
	}

	if isDir(cfg.StaticDir) {
		if err := copyDirContents(cfg.StaticDir, filepath.Join(outputDir, "static")); err != nil {
			return fmt.Errorf("failed to copy static assets: %w", err)
		}
	} else {
		log.Info("static directory not found, skipping copy", zap.String("dir", cfg.StaticDir))
	}

	if err := os.WriteFile(filepath.Join(outputDir, "index.html"), page.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write home page: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "content.json"), doc, 0o644); err != nil {
		return fmt.Errorf("failed to write content document: %w", err)
	}
	log.Info("build completed", zap.String("source", string(res.Source)))
	return nil
}

// copyDirContents recursively copies contents from src to dst.
func copyDirContents(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}
		dstPath := filepath.Join(dst, relPath)

		if d.IsDir() {
			if err := os.MkdirAll(dstPath, os.ModePerm); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dstPath, err)
			}
			return nil
		}
		if err := copyFile(path, dstPath); err != nil {
			return fmt.Errorf("failed to copy file from %s to %s: %w", path, dstPath, err)
		}
		return nil
	})
}

// copyFile copies a single file and keeps its mode.
func copyFile(srcFile, dstFile string) error {
	srcF, err := os.Open(srcFile)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", srcFile, err)
	}
	defer srcF.Close()

	info, err := srcF.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstFile), os.ModePerm); err != nil {
		return err
	}
	dstF, err := os.OpenFile(dstFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dstFile, err)
	}
	if _, err := io.Copy(dstF, srcF); err != nil {
		dstF.Close()
		return fmt.Errorf("failed to copy data from %s to %s: %w", srcFile, dstFile, err)
	}
	return dstF.Close()
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
