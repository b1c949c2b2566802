package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"dyphal/internal/generator"
)

func (a *app) openCommand() *cobra.Command {
	var (
		add        []string
		remove     []string
		regenerate bool
		overrides  sessionOverrides
		text       albumFlags
	)

	cmd := &cobra.Command{
		Use:   "open ALBUM",
		Short: "Show an album and optionally edit and regenerate it",
		Long: `Open loads an existing album and lists its contents. With --add,
--remove or any of the album text flags the album is changed and written
back to the same file. --regenerate rewrites it even without changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context(), overrides, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			s.LoadAlbum(file).Wait()
			s.Wait()
			if s.AlbumFile() == "" {
				return errReported
			}

			if len(remove) > 0 {
				s.RemovePhotos(remove).Wait()
			}
			if len(add) > 0 {
				paths, err := expandInputs(add)
				if err != nil {
					return err
				}
				s.AddPhotos(generator.SourcesFromPaths(paths))
				s.Wait()
			}

			info, err := text.apply(cmd, s.Info(), s)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("title") || cmd.Flags().Changed("description") ||
				cmd.Flags().Changed("footer") || cmd.Flags().Changed("caption") ||
				cmd.Flags().Changed("property") || cmd.Flags().Changed("resolution") {
				s.SetInfo(info)
			}

			if regenerate || s.Dirty() {
				barrier, err := s.Generate(file)
				if err != nil {
					return err
				}
				barrier.Wait()
				s.Wait()
				a.cfg.OutputDir = filepath.Dir(file)
				a.remember(s.Info())
				a.save()
			}

			printAlbum(cmd.OutOrStdout(), s)
			return reportErrors(s.observer.Errors())
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&add, "add", nil, "photos, directories or catalogs to add")
	flags.StringSliceVar(&remove, "remove", nil, "names of photos to remove")
	flags.BoolVar(&regenerate, "regenerate", false, "write the album even if nothing changed")
	flags.IntVar(&overrides.threads, "threads", 0, "number of background threads")
	flags.IntVar(&overrides.quality, "quality", 0, "JPEG quality of resized photos (1-100)")
	text.register(cmd)
	return cmd
}

func printAlbum(w io.Writer, s *session) {
	info := s.Info()
	fmt.Fprintf(w, "Album:       %s\n", s.AlbumFile())
	fmt.Fprintf(w, "Title:       %s\n", info.Title)
	if info.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", info.Description)
	}
	if info.Footer != "" {
		fmt.Fprintf(w, "Footer:      %s\n", info.Footer)
	}
	fmt.Fprintf(w, "Captions:    %v\n", info.CaptionFields)
	fmt.Fprintf(w, "Properties:  %v\n", info.PropertyFields)
	fmt.Fprintf(w, "Resolution:  %dx%d\n", info.PhotoResolution[0], info.PhotoResolution[1])

	photos := s.Photos()
	fmt.Fprintf(w, "Photos:      %d\n", len(photos))
	for _, p := range photos {
		fmt.Fprintf(w, "  %s\n", p.Name())
	}
}
