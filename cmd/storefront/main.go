package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/velora/storefront/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Metrics) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		sf, err := appkg.New(lg, m, cfg)
		if err != nil {
			return err
		}
		return sf.Run(ctx)
	})
}
