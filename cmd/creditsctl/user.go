package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bizhub/credits-api/internal/domain/user"
	"github.com/bizhub/credits-api/internal/pkg/partner"
)

func pushUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push-user [user-id]",
		Short: "Push a local user to the partner system and store its partner id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			users := user.NewService(user.NewRepository(e.db), user.NewTicketStore(nil, e.db), e.cfg.SSOTicketTTL)
			u, err := users.Get(ctx, args[0])
			if err != nil {
				return err
			}

			client := partner.NewClient(partner.Config{
				BaseURL:   e.cfg.PartnerBaseURL,
				SecretKey: e.cfg.PartnerSecretKey,
				AESKey:    e.cfg.PartnerAESKey,
				Timeout:   e.cfg.PartnerTimeout,
			})
			p := partner.SyncUserPayload{BizhubUserID: u.ID, Email: u.Email, Username: u.Name}
			if u.PhoneNumber != nil {
				p.Phone = *u.PhoneNumber
			}
			res, err := client.SyncUser(ctx, p)
			if err != nil {
				return fmt.Errorf("partner sync: %w", err)
			}

			synced := res.Synced
			upd := user.UpdateParams{BizhubUserID: u.ID, Synced: &synced}
			if res.PartnerUserID != "" {
				upd.TkSaasUserID = &res.PartnerUserID
			}
			if err := users.Update(ctx, upd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s synced as %s (new=%t)\n", u.ID, res.PartnerUserID, res.IsNew)
			return nil
		},
	}
}
