package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/synergyayush/lookindharamshala/internal/adapters/database"
	"github.com/synergyayush/lookindharamshala/internal/application/services"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/clients/postgres"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/notifications"
)

// moderation opens the store and builds a moderation service without live
// views. Running API instances pick the writes up from the change feed.
func moderation(ctx context.Context) (*services.ModerationService, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	var opts []services.ModerationOption
	if cfg.WhatsApp.WhatsAppEnabled() {
		sender, err := notifications.NewWhatsAppCloudSender(cfg.WhatsApp)
		if err != nil {
			log.Warn().Err(err).Msg("WhatsApp sender disabled")
		} else {
			opts = append(opts, services.WithMessenger(sender))
		}
	}

	svc := services.NewModerationService(database.NewListingAdapter(pgClient), services.ModerationConfig{
		SiteName:  cfg.Directory.SiteName,
		SiteURL:   cfg.Directory.SiteURL,
		Region:    cfg.Directory.Region,
		Signature: cfg.Directory.OwnerName,
		Defaults: entities.PromotionDefaults{
			Location: cfg.Directory.Region,
			Rating:   cfg.Directory.DefaultRating,
		},
	}, opts...)

	cleanup := func() {
		svc.Wait()
		_ = pgClient.Close()
	}
	return svc, cleanup, nil
}

func withTimeout(cmd *cobra.Command, timeout *time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), *timeout)
}

func newPendingCmd(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List business submissions awaiting review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, timeout)
			defer cancel()

			svc, cleanup, err := moderation(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			pending, err := svc.Pending(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pending)
		},
	}
}

func newApproveCmd(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <listing-id>",
		Short: "Approve a submission and publish it to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, timeout)
			defer cancel()

			svc, cleanup, err := moderation(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Approve(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newRejectCmd(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <listing-id>",
		Short: "Reject a pending submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, timeout)
			defer cancel()

			svc, cleanup, err := moderation(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			listing, err := svc.Reject(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), listing)
		},
	}
}

func newReconcileCmd(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Promote approved submissions that are missing from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, timeout)
			defer cancel()

			svc, cleanup, err := moderation(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := svc.Reconcile(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}
