// Command canteenctl runs diagnostics against a running canteen server.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/canteen-app/config"
)

type cli struct {
	FixDatabase     fixDatabaseCmd     `cmd:"" help:"Normalize embedded order items and remove orphaned rows (needs CANTEEN_SERVICE_KEY)."`
	TestOrderSystem testOrderSystemCmd `cmd:"" help:"Check recent orders, their items and status flow as staff."`
	TestSystem      testSystemCmd      `cmd:"" help:"Check connectivity, keys, tables and the staff dashboard."`
	DebugRealtime   debugRealtimeCmd   `cmd:"" help:"Print change events from the realtime stream."`
	Logout          logoutCmd          `cmd:"" help:"Revoke and forget the stored staff session."`
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:      true,
		DisableTimestamp: true,
	})
	return log
}

func main() {
	log := newLogger()
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("canteenctl"),
		kong.Description("Diagnostics for the canteen backend. Reads CANTEEN_URL and CANTEEN_ANON_KEY."),
		kong.UsageOnError(),
	)

	cfg, err := config.LoadClient()
	if err != nil {
		log.Errorf("✘ %v", err)
		os.Exit(1)
	}

	a := newApp(context.Background(), cfg, log)
	if err := kctx.Run(a); err != nil {
		log.Errorf("✘ %v", err)
		if errors.Is(err, errConnection) || errors.Is(err, config.ErrMissingBackend) || errors.Is(err, errMissingConfig) {
			os.Exit(1)
		}
	}
	a.summary()
}
