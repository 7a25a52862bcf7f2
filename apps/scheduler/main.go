package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/laudo/internal/client"
	"github.com/smallbiznis/laudo/internal/clock"
	"github.com/smallbiznis/laudo/internal/config"
	"github.com/smallbiznis/laudo/internal/lock"
	"github.com/smallbiznis/laudo/internal/observability"
	"github.com/smallbiznis/laudo/internal/providers"
	"github.com/smallbiznis/laudo/internal/report"
	"github.com/smallbiznis/laudo/internal/scheduler"
	"github.com/smallbiznis/laudo/pkg/db"
	"go.uber.org/fx"
)

// Runs the maintenance jobs without the HTTP server, for deployments that
// keep uploads on a volume shared by several API replicas.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by scheduler
		lock.Module,
		providers.Module,
		client.Module,
		report.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
