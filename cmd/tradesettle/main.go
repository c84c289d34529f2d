package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradesettle/internal/audit"
	"github.com/smallbiznis/tradesettle/internal/burden"
	"github.com/smallbiznis/tradesettle/internal/calendar"
	"github.com/smallbiznis/tradesettle/internal/clock"
	"github.com/smallbiznis/tradesettle/internal/commission"
	"github.com/smallbiznis/tradesettle/internal/config"
	"github.com/smallbiznis/tradesettle/internal/customer"
	"github.com/smallbiznis/tradesettle/internal/hours"
	"github.com/smallbiznis/tradesettle/internal/invoice"
	"github.com/smallbiznis/tradesettle/internal/margin"
	"github.com/smallbiznis/tradesettle/internal/migration"
	"github.com/smallbiznis/tradesettle/internal/observability"
	"github.com/smallbiznis/tradesettle/internal/payment"
	"github.com/smallbiznis/tradesettle/internal/payroll"
	"github.com/smallbiznis/tradesettle/internal/server"
	"github.com/smallbiznis/tradesettle/internal/settings"
	"github.com/smallbiznis/tradesettle/pkg/db"
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
		settings.Module,
		calendar.Module,
		migration.Module,

		// Settlement domains
		hours.Module,
		customer.Module,
		burden.Module,
		audit.Module,
		invoice.Module,
		margin.Module,
		payment.Module,
		commission.Module,
		payroll.Module,

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
