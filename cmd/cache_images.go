package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type cacheImagesOptions struct {
	transfer bool
	list     bool
}

func newCacheImagesCmd() *cobra.Command {
	opts := &cacheImagesOptions{}
	cmd := &cobra.Command{
		Use:   "cache-images",
		Short: "Download every platform image into the local cache",
		Long: `Download the cluster image and every component image into the local
image cache so deployments work offline. Images already cached are skipped.

With --transfer the cached images are also loaded into the running k0s
cluster container.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheImages(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.transfer, "transfer", false, "Load the cached images into the cluster")
	cmd.Flags().BoolVar(&opts.list, "list", false, "List the cached images and exit")
	return cmd
}

func runCacheImages(cmd *cobra.Command, opts *cacheImagesOptions) error {
	application, err := newApplication(cmd, false)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	s := application.Services
	if !opts.list {
		_, err = withSpinner(cmd, fmt.Sprintf("Caching %d images...", len(s.Images)), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.Cache.CacheAll(ctx, s.Images)
		})
		if err != nil {
			printBanner(out, false, "Image caching failed")
			return err
		}
		printBanner(out, true, fmt.Sprintf("%d images cached", len(s.Images)))
	}

	if opts.transfer {
		_, err = withSpinner(cmd, "Loading images into the cluster...", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.Cache.TransferAll(ctx)
		})
		if err != nil {
			printBanner(out, false, "Image transfer failed")
			return err
		}
		printBanner(out, true, "Images loaded into the cluster")
	}

	entries, err := s.Cache.List()
	if err != nil {
		return err
	}
	formatter, err := newFormatter(out)
	if err != nil {
		return err
	}
	return formatter.Images(out, entries)
}
