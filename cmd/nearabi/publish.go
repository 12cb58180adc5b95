package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nearabi/nearabi/abi"
	"github.com/nearabi/nearabi/publish"
	"github.com/nearabi/nearabi/validate"
)

func newPublishCmd(gf *globalFlags) *cobra.Command {
	var (
		bucket   string
		prefix   string
		endpoint string
	)
	cmd := &cobra.Command{
		Use:   "publish <abi-file>",
		Short: "Upload an ABI document to S3-compatible storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, gf, args[0])
			if err != nil {
				return err
			}
			defer e.close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			v, err := validate.New()
			if err != nil {
				return err
			}
			diags, err := v.ValidateBytes(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if validate.HasErrors(diags) {
				e.out.Diagnostics(diags)
				e.out.Errorf("refusing to publish invalid ABI %s", args[0])
				return errSilent
			}
			doc, err := abi.Decode(data)
			if err != nil {
				return err
			}

			pc := e.cfg.Publish
			opts := publish.Options{
				Bucket:          pc.Bucket,
				Prefix:          pc.Prefix,
				Region:          pc.Region,
				Endpoint:        pc.Endpoint,
				PathStyle:       pc.PathStyle,
				AccessKeyID:     pc.AccessKeyID,
				SecretAccessKey: pc.SecretAccessKey,
				SessionToken:    pc.SessionToken,
			}
			fl := cmd.Flags()
			if fl.Changed("bucket") {
				opts.Bucket = bucket
			}
			if fl.Changed("prefix") {
				opts.Prefix = prefix
			}
			if fl.Changed("endpoint") {
				opts.Endpoint = endpoint
			}

			p, err := publish.New(opts, e.logger)
			if err != nil {
				return err
			}
			url, err := p.Publish(cmd.Context(), doc)
			if err != nil {
				return err
			}
			e.out.Successf("Published %s", url)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&bucket, "bucket", "", "target bucket (overrides nearabi.ini)")
	fl.StringVar(&prefix, "prefix", "", "key prefix (overrides nearabi.ini)")
	fl.StringVar(&endpoint, "endpoint", "", "S3 endpoint URL for non-AWS storage")
	return cmd
}
