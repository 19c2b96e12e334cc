package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bizhub/credits-api/internal/domain/catalog"
	"github.com/bizhub/credits-api/internal/domain/credit"
	"github.com/bizhub/credits-api/internal/pkg/metrics"
)

func grantCmd() *cobra.Command {
	var (
		userID      string
		amount      int64
		txType      string
		description string
		priceID     string
		paymentID   string
		expireDays  int
	)
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Credit a user with a new lot",
		Long: `Adds a credit lot to a user.

With --price-id the amount and expiry come from the credit package sold
under that price. --amount and --expire-days override them.

Examples:
  creditsctl grant --user u1 --amount 100 --type REGISTER_GIFT
  creditsctl grant --user u1 --price-id price_pack_100 --payment-id pi_123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			t := credit.TxType(txType)
			if priceID != "" {
				pkg, err := catalog.NewService(catalog.NewRepository(e.db)).PackageByPriceID(ctx, priceID)
				if err != nil {
					return fmt.Errorf("resolve package %s: %w", priceID, err)
				}
				if amount <= 0 {
					amount = pkg.Amount
				}
				if expireDays <= 0 {
					expireDays = pkg.ExpireDays
				}
				if !cmd.Flags().Changed("type") {
					t = credit.TxTypePurchasePackage
				}
			}

			svc := credit.NewService(credit.NewRepository(e.db), metrics.NewDefault())
			row, err := svc.Grant(ctx, credit.GrantParams{
				UserID:         userID,
				Type:           t,
				Amount:         amount,
				Description:    description,
				PaymentID:      paymentID,
				ExpirationDate: credit.DefaultExpiry(time.Now(), expireDays, e.cfg.DefaultCreditExpireDays),
			})
			if err != nil {
				return err
			}

			expires := "never"
			if row.ExpirationDate != nil {
				expires = row.ExpirationDate.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits to %s (transaction %s, expires %s)\n", row.Amount, userID, row.ID, expires)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Credits to grant")
	cmd.Flags().StringVar(&txType, "type", string(credit.TxTypeRegisterGift), "Grant type")
	cmd.Flags().StringVar(&description, "description", "", "Ledger description")
	cmd.Flags().StringVar(&priceID, "price-id", "", "Take amount and expiry from the package with this price")
	cmd.Flags().StringVar(&paymentID, "payment-id", "", "Payment the lot belongs to")
	cmd.Flags().IntVar(&expireDays, "expire-days", 0, "Days until the lot expires (default DEFAULT_CREDIT_EXPIRE_DAYS)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
