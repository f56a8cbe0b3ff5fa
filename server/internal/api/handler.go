package api

import (
	"log/slog"
	"net/http"
	"slices"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/quickbite/quickbite/server/internal/auth"
	"github.com/quickbite/quickbite/server/internal/hub"
	"github.com/quickbite/quickbite/server/internal/notify"
	"github.com/quickbite/quickbite/server/internal/store"
)

// StatsSource reports live hub counts.
type StatsSource interface {
	Stats() hub.Stats
}

// NotificationSource lists recently forwarded notifications.
type NotificationSource interface {
	Recent() []*notify.Notification
}

// Deps are the collaborators the router serves.
type Deps struct {
	Store         store.Store
	Hub           StatsSource
	Notifications NotificationSource
	Auth          *auth.APIKey

	// WS and Metrics are mounted as-is at /ws and /metrics when set.
	WS      http.Handler
	Metrics http.Handler

	// CORSOrigins lists allowed browser origins. Empty allows any origin.
	CORSOrigins []string
}

// Handler serves the REST API.
type Handler struct {
	store  store.Store
	hub    StatsSource
	notes  NotificationSource
	auth   *auth.APIKey
	router *gin.Engine
}

// New builds the router with every route registered.
func New(d Deps) *Handler {
	if d.Auth == nil {
		d.Auth = auth.NewAPIKey("none", "", "")
	}
	h := &Handler{
		store: d.Store,
		hub:   d.Hub,
		notes: d.Notifications,
		auth:  d.Auth,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))
	router.Use(cors(d.CORSOrigins, d.Auth))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.health)
		v1.GET("/stats", h.stats)

		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", d.Auth.Require(), h.updateStatus)

		v1.GET("/notifications", d.Auth.Require(), h.notifications)
	}

	if d.WS != nil {
		router.GET("/ws", gin.WrapH(d.WS))
	}
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics))
	}

	h.router = router
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// health returns GET /api/v1/health.
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// stats returns GET /api/v1/stats: live rooms and connections.
func (h *Handler) stats(c *gin.Context) {
	var s hub.Stats
	if h.hub != nil {
		s = h.hub.Stats()
	}
	c.JSON(http.StatusOK, s)
}

// notifications returns GET /api/v1/notifications, newest first.
func (h *Handler) notifications(c *gin.Context) {
	out := []*notify.Notification{}
	if h.notes != nil {
		out = h.notes.Recent()
	}
	c.JSON(http.StatusOK, out)
}

func cors(origins []string, a *auth.APIKey) gin.HandlerFunc {
	allowHeaders := "Content-Type, Authorization"
	if a.Enabled() {
		allowHeaders += ", " + a.Header()
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(origins) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
