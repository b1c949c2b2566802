package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"dyphal/internal/generator"
	"dyphal/internal/publish"
	"dyphal/internal/tasks"
)

func (a *app) publishCommand() *cobra.Command {
	var (
		bucket   string
		prefix   string
		region   string
		endpoint string
		threads  int
		copyURL  bool
	)

	cmd := &cobra.Command{
		Use:   "publish DIR",
		Short: "Upload an album directory to S3-compatible storage",
		Long: `publish uploads every file below DIR to a bucket. Settings not
given on the command line come from the publish section of the
configuration, or from DYPHAL_PUBLISH_* environment variables.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			opts, err := publish.OptionsFrom(a.cfg.Publish)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("bucket") {
				opts.Bucket = bucket
			}
			if flags.Changed("prefix") {
				opts.Prefix = prefix
			}
			if flags.Changed("region") {
				opts.Region = region
			}
			if flags.Changed("endpoint") {
				opts.Endpoint = endpoint
			}

			ctx, stop := withSignals(cmd.Context())
			defer stop()

			client, err := publish.NewClient(ctx, opts)
			if err != nil {
				return err
			}

			if threads <= 0 {
				threads = a.cfg.Threads
			}
			observer := generator.NewLogObserver()
			orch := tasks.New(ctx, threads, observer)
			defer orch.Close()

			barrier, err := publish.New(client, opts, orch, observer).Publish(dir)
			if err != nil {
				return err
			}
			barrier.Wait()

			if err := reportErrors(observer.Errors()); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			url := opts.URL(albumPage(dir))
			fmt.Fprintln(cmd.OutOrStdout(), url)
			if copyURL {
				copyToClipboard(url)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&bucket, "bucket", "", "destination bucket")
	flags.StringVar(&prefix, "prefix", "", "key prefix inside the bucket")
	flags.StringVar(&region, "region", "", "bucket region")
	flags.StringVar(&endpoint, "endpoint", "", "endpoint of an S3-compatible service")
	flags.IntVar(&threads, "threads", 0, "number of concurrent uploads")
	flags.BoolVar(&copyURL, "copy-url", false, "copy the album URL to the clipboard")
	return cmd
}
