package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/repository"
	"github.com/noah-isme/studybase-api/internal/service"
	"github.com/noah-isme/studybase-api/pkg/cache"
)

func newResourcesCmd(e *env) *cobra.Command {
	var adminEmail string

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Moderate uploaded resources",
	}
	cmd.PersistentFlags().StringVar(&adminEmail, "admin", "", "email of the admin the decision is recorded against")

	moderate := func(status models.ResourceStatus) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(adminEmail) == "" {
				return errors.New("--admin is required")
			}
			ctx := cmd.Context()

			users := repository.NewUserRepository(e.db)
			admin, err := users.FindByEmail(ctx, adminEmail)
			if err != nil {
				return fmt.Errorf("find admin %s: %w", adminEmail, err)
			}
			if admin.Role != models.RoleAdmin {
				return fmt.Errorf("%s is not an admin", adminEmail)
			}

			// Stats are cached in Redis by the API; invalidating them needs the same client.
			var cacheRepo service.CacheRepository
			client, err := cache.NewRedis(ctx, e.cfg.Redis)
			if err != nil {
				e.logger.Warn("redis unavailable, cached stats will expire on their own", zap.Error(err))
			} else if client != nil {
				defer client.Close()
				cacheRepo = repository.NewCacheRepository(client, e.logger)
			}
			cacheSvc := service.NewCacheService(cacheRepo, nil, e.cfg.Stats.CacheTTL, e.logger, e.cfg.Stats.CacheEnabled)

			resources := service.NewResourceService(repository.NewResourceRepository(e.db), nil, users, cacheSvc, validator.New(), e.logger, service.ResourceServiceConfig{})
			actor := &models.Actor{UserID: admin.ID, Email: admin.Email, FullName: admin.FullName, Role: admin.Role}

			for _, id := range args {
				res, err := resources.UpdateStatus(ctx, actor, id, models.UpdateResourceStatusRequest{Status: status})
				if err != nil {
					return fmt.Errorf("%s %s: %w", status, id, err)
				}
				e.logger.Info("resource moderated", zap.String("id", res.ID), zap.String("title", res.Title), zap.String("status", string(res.Status)))
			}
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "approve <id>...",
			Short: "Publish pending resources",
			Args:  cobra.MinimumNArgs(1),
			RunE:  moderate(models.ResourceStatusApproved),
		},
		&cobra.Command{
			Use:   "reject <id>...",
			Short: "Reject resources",
			Args:  cobra.MinimumNArgs(1),
			RunE:  moderate(models.ResourceStatusRejected),
		},
	)
	return cmd
}
