package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bizhub/credits-api/internal/domain/credit"
	"github.com/bizhub/credits-api/internal/pkg/metrics"
	"github.com/bizhub/credits-api/internal/pkg/storage"
)

func exportStatementCmd() *cobra.Command {
	var localDir string
	cmd := &cobra.Command{
		Use:   "export-statement [user-id]",
		Short: "Upload a user's ledger statement as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			var store storage.ObjectStore
			if e.cfg.StorageConfigured() && localDir == "" {
				store, err = storage.NewR2Storage(ctx, storage.R2Config{
					AccountID:       e.cfg.R2AccountID,
					AccessKeyID:     e.cfg.R2AccessKeyID,
					AccessKeySecret: e.cfg.R2AccessKeySecret,
					BucketName:      e.cfg.R2BucketName,
					PublicURL:       e.cfg.R2PublicURL,
				})
			} else {
				if localDir == "" {
					localDir = "statements"
				}
				store, err = storage.NewLocalStorage(localDir, "")
			}
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}

			svc := credit.NewService(credit.NewRepository(e.db), metrics.NewDefault())
			key, url, err := svc.ExportStatement(ctx, store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", key, url)
			return nil
		},
	}
	cmd.Flags().StringVar(&localDir, "local-dir", "", "Write to this directory instead of R2")
	return cmd
}
