package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/canteen-app/dashboard"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/services"
	"github.com/yeremiapane/canteen-app/utils"
)

// ping checks the server is reachable at all. Any failure here is fatal.
func (a *app) ping() error {
	if err := a.call(a.ctx, http.MethodGet, "/ping", "", "", nil, nil); err != nil {
		if errors.Is(err, errConnection) {
			return err
		}
		return fmt.Errorf("%w: /ping answered %v", errConnection, err)
	}
	a.pass("backend reachable at %s", a.cfg.BackendURL)
	return nil
}

type testSystemCmd struct{}

func (c *testSystemCmd) Run(a *app) error {
	if err := a.ping(); err != nil {
		return err
	}

	var status services.CanteenStatus
	if err := a.anon(a.ctx, http.MethodGet, "/api/canteen/status", nil, &status); err != nil {
		a.fail("anon key rejected: %v", err)
		return nil
	}
	state := "closed"
	if status.Open {
		state = "open"
	}
	a.pass("anon key accepted; canteen %s (%s-%s, local %s)", state, status.Opens, status.Closes, status.LocalTime)

	var menu []models.InventoryItem
	if err := a.anon(a.ctx, http.MethodGet, "/api/inventory", nil, &menu); err != nil {
		a.fail("inventory: %v", err)
	} else {
		a.pass("inventory readable: %d available items", len(menu))
	}

	if a.cfg.ServiceKey == "" {
		a.skip("table health skipped: CANTEEN_SERVICE_KEY not set")
	} else {
		var h services.Health
		if err := a.service(a.ctx, http.MethodGet, "/api/maintenance/health", nil, &h); err != nil {
			a.fail("table health: %v", err)
		} else {
			a.pass("tables: transactions=%d order_items=%d inventory=%d pending_changes=%d",
				h.Transactions, h.OrderItems, h.Inventory, h.Pending)
		}
	}

	sess, err := a.staffSession(a.ctx)
	if errors.Is(err, errMissingConfig) {
		a.skip("staff checks skipped: %v", err)
		return nil
	}
	if err != nil {
		a.fail("staff login: %v", err)
		return nil
	}
	a.pass("logged in as %s (%s, %s)", sess.Email, sess.Role, sess.Initials())

	var m dashboard.Metrics
	if err := a.call(a.ctx, http.MethodGet, "/api/staff/dashboard/metrics", a.cfg.AnonKey, sess.AccessToken, nil, &m); err != nil {
		a.fail("dashboard metrics: %v", err)
	} else {
		a.pass("dashboard: %d orders today (%+.1f%%), revenue %s, %d active",
			m.TodayOrders, m.OrdersTrend, m.RevenueLabel, m.ActiveOrders)
	}
	return nil
}

type testOrderSystemCmd struct {
	Limit int `default:"20" help:"How many recent orders to inspect."`
}

func (c *testOrderSystemCmd) Run(a *app) error {
	if err := a.ping(); err != nil {
		return err
	}
	sess, err := a.staffSession(a.ctx)
	if err != nil {
		return err
	}

	var orders []models.Transaction
	path := fmt.Sprintf("/api/staff/transactions?payment_status=all&limit=%d", c.Limit)
	if err := a.call(a.ctx, http.MethodGet, path, a.cfg.AnonKey, sess.AccessToken, nil, &orders); err != nil {
		a.fail("list orders: %v", err)
		return nil
	}
	a.pass("read %d recent orders", len(orders))

	byStatus := map[string]int{}
	for _, o := range orders {
		byStatus[o.OrderStatus]++
		label := o.OrderNumber
		if label == "" {
			label = fmt.Sprintf("#%d", o.ID)
		}

		if len(o.OrderItems) == 0 && len(o.Items) == 0 {
			a.fail("%s has no items in either storage path", label)
			continue
		}
		if len(o.OrderItems) == 0 {
			a.skip("%s still uses embedded items; run fix-database", label)
		}

		next, ok := services.NextStatus(o.OrderStatus)
		switch {
		case ok:
			a.pass("%s %s/%s %s, next %s", label, o.OrderStatus, o.PaymentStatus, utils.FormatINR(o.TotalAmount), next)
		case services.IsTerminal(o.OrderStatus):
			a.pass("%s %s/%s %s, final", label, o.OrderStatus, o.PaymentStatus, utils.FormatINR(o.TotalAmount))
		default:
			a.fail("%s has unknown status %q", label, o.OrderStatus)
		}
	}
	for status, n := range byStatus {
		a.log.Infof("  %-10s %d", status, n)
	}

	var readings []dashboard.GaugeReading
	if err := a.call(a.ctx, http.MethodGet, "/api/staff/dashboard/gauge", a.cfg.AnonKey, sess.AccessToken, nil, &readings); err != nil {
		a.fail("sales gauge: %v", err)
		return nil
	}
	for _, r := range readings {
		a.pass("gauge %-5s %d/%d orders (%.0f%%)", r.Period, r.Orders, r.Target, r.Percentage)
	}
	return nil
}

type fixDatabaseCmd struct {
	DryRun bool `help:"Only report table health."`
}

func (c *fixDatabaseCmd) Run(a *app) error {
	if a.cfg.ServiceKey == "" {
		return fmt.Errorf("%w: CANTEEN_SERVICE_KEY", errMissingConfig)
	}
	if err := a.ping(); err != nil {
		return err
	}

	var before services.Health
	if err := a.service(a.ctx, http.MethodGet, "/api/maintenance/health", nil, &before); err != nil {
		a.fail("health: %v", err)
		return nil
	}
	a.pass("before: transactions=%d order_items=%d", before.Transactions, before.OrderItems)
	if c.DryRun {
		return nil
	}

	var res services.NormalizeResult
	if err := a.service(a.ctx, http.MethodPost, "/api/maintenance/normalize-items", nil, &res); err != nil {
		a.fail("normalize items: %v", err)
	} else if res.Failed > 0 {
		a.fail("normalized %d, cleared %d, %d failed of %d scanned", res.Normalized, res.Cleared, res.Failed, res.Scanned)
	} else {
		a.pass("normalized %d, cleared %d of %d scanned", res.Normalized, res.Cleared, res.Scanned)
	}

	var orphans struct {
		Deleted int64 `json:"deleted"`
	}
	if err := a.service(a.ctx, http.MethodPost, "/api/maintenance/orphans", nil, &orphans); err != nil {
		a.fail("orphan cleanup: %v", err)
	} else {
		a.pass("removed %d orphaned order items", orphans.Deleted)
	}

	var after services.Health
	if err := a.service(a.ctx, http.MethodGet, "/api/maintenance/health", nil, &after); err != nil {
		a.fail("health: %v", err)
		return nil
	}
	a.pass("after: transactions=%d order_items=%d", after.Transactions, after.OrderItems)
	return nil
}

type debugRealtimeCmd struct {
	Table    string        `default:"transactions" help:"Table to watch (empty for all)."`
	Event    string        `default:"*" help:"INSERT, UPDATE, DELETE, a comma list or *."`
	Duration time.Duration `default:"30s" help:"How long to listen."`
	Max      int           `default:"0" help:"Stop after this many events (0 = no limit)."`
}

func (c *debugRealtimeCmd) Run(a *app) error {
	if err := a.ping(); err != nil {
		return err
	}
	sess, err := a.staffSession(a.ctx)
	if err != nil {
		return err
	}
	wsURL, err := a.websocketURL(sess.AccessToken, c.Table, c.Event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(a.ctx, c.Duration)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: websocket: %v", errConnection, err)
	}
	defer conn.Close()
	a.pass("subscribed to %q events %s for %s", c.Table, c.Event, c.Duration)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	seen := 0
	for c.Max == 0 || seen < c.Max {
		var ev realtime.ChangeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		seen++
		a.log.WithFields(logrus.Fields{
			"table": ev.Table,
			"type":  ev.Type,
			"id":    ev.RecordID,
		}).Info(ev.At.Format("15:04:05.000"))
	}

	if seen == 0 {
		a.fail("no events within %s; check that the change monitor is running", c.Duration)
		return nil
	}
	a.pass("received %d events", seen)
	return nil
}

type logoutCmd struct{}

func (c *logoutCmd) Run(a *app) error {
	if err := a.sessions.Load(a.ctx); err != nil {
		return err
	}
	sess, err := a.sessions.Current()
	if err != nil {
		a.skip("no stored session")
		return nil
	}
	if sess.AccessToken != "" {
		if err := a.call(a.ctx, http.MethodPost, "/api/auth/logout", a.cfg.AnonKey, sess.AccessToken, nil, nil); err != nil {
			a.skip("server logout: %v", err)
		}
	}
	if err := a.sessions.Clear(a.ctx); err != nil {
		return err
	}
	a.pass("logged out %s", sess.Email)
	return nil
}
