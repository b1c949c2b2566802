package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dyphal/internal/catalog"
	"dyphal/internal/generator"
)

func (a *app) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info PHOTO...",
		Short: "Show the captions and properties extracted from photos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandInputs(args)
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context(), sessionOverrides{}, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			s.AddPhotos(generator.SourcesFromPaths(paths))
			s.Wait()

			w := cmd.OutOrStdout()
			for i, p := range s.Photos() {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%s (%s)\n", p.Name(), p.OriginalPath())
				for _, line := range p.Summary() {
					fmt.Fprintf(w, "  %s\n", line)
				}
			}
			return reportErrors(s.observer.Errors())
		},
	}
}

func (a *app) installTemplateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install-template DIR",
		Short: "Copy the viewer template files into an album directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context(), sessionOverrides{}, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			s.InstallTemplate(dir).Wait()
			if err := reportErrors(s.observer.Errors()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %d template files in %s\n", len(generator.TemplateFiles), dir)
			return nil
		},
	}
}

func (a *app) importCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-catalog CATALOG",
		Short: "List the photos of a gThumb 3 catalog",
		Long: `import-catalog prints the local files named by a gThumb 3 catalog,
one per line, so they can be passed to other tools. A catalog name that
does not exist in the current directory is looked up in the gThumb
catalog directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.catalogPath(args[0])
			c, err := catalog.Load(path)
			if err != nil {
				return err
			}
			for _, uri := range c.Skipped {
				log.Warn("skipping %s, which is not a local file", uri)
			}
			for _, f := range c.Files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}

			a.cfg.Gthumb3Dir = filepath.Dir(path)
			a.save()
			return nil
		},
	}
}

func (a *app) catalogPath(name string) string {
	if _, err := os.Stat(name); err == nil || filepath.IsAbs(name) {
		abs, _ := filepath.Abs(name)
		return abs
	}
	candidate := filepath.Join(a.cfg.Gthumb3Dir, name)
	if filepath.Ext(candidate) == "" {
		candidate += catalogExtension
	}
	return candidate
}
