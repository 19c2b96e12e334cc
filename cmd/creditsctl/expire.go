package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bizhub/credits-api/internal/domain/credit"
	"github.com/bizhub/credits-api/internal/pkg/metrics"
)

func expireCmd() *cobra.Command {
	var (
		loop     bool
		interval time.Duration
		batch    int
	)
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Expire credit lots past their expiration date",
		Long: `Debits the unspent part of every expired lot and marks it processed.

Runs one sweep by default. With --loop it sweeps on every interval until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if interval <= 0 {
				interval = e.cfg.ExpirySweepInterval
			}
			if batch <= 0 {
				batch = e.cfg.ExpiryBatchSize
			}
			svc := credit.NewService(credit.NewRepository(e.db), metrics.NewDefault())

			if !loop {
				res, err := svc.ExpireLots(cmd.Context(), batch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d lots, %d credits\n", res.Lots, res.Credits)
				return nil
			}
			return runExpiryLoop(svc, interval, batch)
		},
	}
	cmd.Flags().BoolVar(&loop, "loop", false, "Keep sweeping on the interval")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Sweep interval (default EXPIRY_SWEEP_INTERVAL)")
	cmd.Flags().IntVar(&batch, "batch", 0, "Lots per sweep (default EXPIRY_BATCH_SIZE)")
	return cmd
}

func runExpiryLoop(svc *credit.Service, interval time.Duration, batch int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	log.Info().Dur("interval", interval).Int("batch", batch).Msg("Starting expiry worker")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := svc.ExpireLots(ctx, batch)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Error().Err(err).Msg("Expiry sweep failed")
		case res.Lots > 0:
			log.Info().Int("lots", res.Lots).Int64("credits", res.Credits).Msg("Expiry sweep done")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("expiry worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}
