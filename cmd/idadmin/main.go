package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/idadmin/internal/audit"
	"github.com/smallbiznis/idadmin/internal/auth"
	"github.com/smallbiznis/idadmin/internal/authorization"
	"github.com/smallbiznis/idadmin/internal/client"
	"github.com/smallbiznis/idadmin/internal/clock"
	"github.com/smallbiznis/idadmin/internal/config"
	"github.com/smallbiznis/idadmin/internal/grant"
	"github.com/smallbiznis/idadmin/internal/identity"
	"github.com/smallbiznis/idadmin/internal/migration"
	"github.com/smallbiznis/idadmin/internal/observability"
	"github.com/smallbiznis/idadmin/internal/ratelimit"
	"github.com/smallbiznis/idadmin/internal/scheduler"
	"github.com/smallbiznis/idadmin/internal/seed"
	"github.com/smallbiznis/idadmin/internal/server"
	"github.com/smallbiznis/idadmin/internal/serversession"
	"github.com/smallbiznis/idadmin/internal/useradmin"
	"github.com/smallbiznis/idadmin/pkg/db"
	"github.com/smallbiznis/idadmin/pkg/redisclient"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redisclient.Module,
		clock.Module,
		migration.Module,

		// Stores
		identity.Module,
		client.Module,
		grant.Module,
		serversession.Module,

		// Console services
		ratelimit.Module,
		audit.Module,
		authorization.Module,
		auth.Module,
		useradmin.Module,
		seed.Module,
		scheduler.Module,

		server.Module,
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
