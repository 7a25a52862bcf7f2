package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/laudo/internal/client"
	"github.com/smallbiznis/laudo/internal/clock"
	"github.com/smallbiznis/laudo/internal/config"
	"github.com/smallbiznis/laudo/internal/lock"
	"github.com/smallbiznis/laudo/internal/migration"
	"github.com/smallbiznis/laudo/internal/observability"
	"github.com/smallbiznis/laudo/internal/providers"
	"github.com/smallbiznis/laudo/internal/scheduler"
	"github.com/smallbiznis/laudo/internal/server"
	"github.com/smallbiznis/laudo/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Adapters
		lock.Module,
		providers.Module,

		// Functional Domains. server.Module pulls in report and financial.
		client.Module,
		server.Module,
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
