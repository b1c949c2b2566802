package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"dyphal/internal/config"
	"dyphal/internal/generator"
	"dyphal/internal/mediatypes"
)

// albumFlags are the album text and field selections given on the
// command line.
type albumFlags struct {
	title       string
	description string
	footer      string
	captions    []string
	properties  []string
	resolution  string
}

func (f *albumFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "album title")
	flags.StringVar(&f.description, "description", "", "album description")
	flags.StringVar(&f.footer, "footer", "", "album footer")
	flags.StringSliceVar(&f.captions, "caption", nil, "caption fields to show, in order")
	flags.StringSliceVar(&f.properties, "property", nil, "photo properties to show, in order")
	flags.StringVar(&f.resolution, "resolution", "", "maximum photo size as WIDTHxHEIGHT")
}

// apply overlays the flags that were given on info. Field selections
// that are neither given nor remembered default to the fields every
// photo has.
func (f *albumFlags) apply(cmd *cobra.Command, info generator.Info, s *session) (generator.Info, error) {
	flags := cmd.Flags()
	if flags.Changed("title") {
		info.Title = f.title
	}
	if flags.Changed("description") {
		info.Description = f.description
	}
	if flags.Changed("footer") {
		info.Footer = f.footer
	}
	if flags.Changed("caption") {
		info.CaptionFields = f.captions
	} else if info.CaptionFields == nil {
		info.CaptionFields = s.AvailableCaptions(false)
	}
	if flags.Changed("property") {
		info.PropertyFields = f.properties
	} else if info.PropertyFields == nil {
		info.PropertyFields = s.AvailableProperties(false)
	}
	if flags.Changed("resolution") {
		res, err := config.ParseResolution(f.resolution)
		if err != nil {
			return info, err
		}
		info.PhotoResolution = res
	}
	return info, nil
}

func (a *app) generateCommand() *cobra.Command {
	var (
		albumFile    string
		withTemplate bool
		overrides    sessionOverrides
		text         albumFlags
	)

	cmd := &cobra.Command{
		Use:   "generate [photo|directory|catalog]...",
		Short: "Create an album from photos, directories of photos or gThumb catalogs",
		Example: `  dyphal generate --album ~/albums/trip/trip.dyphal --title "Trip" ~/photos/trip
  dyphal generate --album out/party.dyphal --caption Description,Date party.catalog`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if albumFile == "" {
				return generator.ErrNoAlbumFile
			}
			if !strings.HasSuffix(albumFile, mediatypes.AlbumExtension) {
				albumFile += mediatypes.AlbumExtension
			}
			target, err := filepath.Abs(albumFile)
			if err != nil {
				return err
			}

			paths, err := expandInputs(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no photos found in %s", strings.Join(args, ", "))
			}

			s, err := a.openSession(cmd.Context(), overrides, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			s.AddPhotos(generator.SourcesFromPaths(paths))
			s.Wait()
			if len(s.Photos()) == 0 {
				return errReported
			}

			info, err := text.apply(cmd, a.rememberedInfo(), s)
			if err != nil {
				return err
			}
			s.SetInfo(info)

			barrier, err := s.Generate(target)
			if err != nil {
				return err
			}
			if withTemplate {
				s.InstallTemplate(filepath.Dir(target))
			}
			barrier.Wait()
			s.Wait()

			a.cfg.PhotoDir = filepath.Dir(paths[0])
			a.cfg.OutputDir = filepath.Dir(target)
			a.remember(info)
			a.save()

			if err := reportErrors(s.observer.Errors()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s with %d photos\n", target, len(s.Photos()))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&albumFile, "album", "o", "", "album file to write (required)")
	flags.BoolVar(&withTemplate, "with-template", false, "also install the viewer template next to the album")
	flags.IntVar(&overrides.threads, "threads", 0, "number of background threads")
	flags.IntVar(&overrides.quality, "quality", 0, "JPEG quality of resized photos (1-100)")
	text.register(cmd)
	_ = cmd.MarkFlagRequired("album")
	return cmd
}

// rememberedInfo returns the album settings saved from the last run.
func (a *app) rememberedInfo() generator.Info {
	info := generator.Info{PhotoResolution: generator.DefaultResolution}
	if ui := a.cfg.UIData; ui != nil {
		info.Footer = ui.Footer
		info.CaptionFields = ui.CaptionFields
		info.PropertyFields = ui.PropertyFields
		if ui.PhotoResolution[0] > 0 && ui.PhotoResolution[1] > 0 {
			info.PhotoResolution = ui.PhotoResolution
		}
	}
	return info
}

// remember stores the album settings for the next run.
func (a *app) remember(info generator.Info) {
	a.cfg.UIData = &config.UIData{
		Footer:          info.Footer,
		CaptionFields:   info.CaptionFields,
		PropertyFields:  info.PropertyFields,
		PhotoResolution: info.PhotoResolution,
	}
}
