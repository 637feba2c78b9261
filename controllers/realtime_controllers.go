package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/middlewares"
	"github.com/yeremiapane/canteen-app/realtime"
	"github.com/yeremiapane/canteen-app/utils"
)

type RealtimeController struct {
	hub *realtime.Hub
}

func NewRealtimeController(hub *realtime.Hub) *RealtimeController {
	return &RealtimeController{hub: hub}
}

// Stream upgrades to a websocket and forwards change events matching
// ?table= and ?event=.
func (rc *RealtimeController) Stream(c *gin.Context) {
	filter := realtime.ParseFilter(c.Query("table"), c.Query("event"))
	who := "unknown"
	if sess, err := middlewares.CurrentSession(c); err == nil {
		who = sess.Email
	}
	utils.InfoLogger.Infof("realtime: %s subscribed to %q %v", who, filter.Table, filter.Types)
	rc.hub.ServeWebSocket(c.Writer, c.Request, filter)
}
