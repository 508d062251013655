package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sentiment-observer/src/align"
	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
	"sentiment-observer/src/resolution"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

// DashboardServer is the gateway the rendering widget connects to: REST for
// health/stats/control, websocket for render frames. It implements
// interfaces.IDataExchanger for the switch controller and merge engine.
type DashboardServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Registry *resolution.Registry
	engine   *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MRenderFrame
	register   chan *Client
	unregister chan *Client

	// Latest frame kept for clients connecting mid-stream
	latestFrame *models.MRenderFrame
	frameMutex  sync.RWMutex

	// Wired after construction to avoid a constructor cycle with the
	// controller (which needs the server as its exchanger).
	RequestSwitch func(subject, resolution string)
	LoadBatch     func(ctx context.Context, subjects []string, resolution string) map[string][]models.MBucket
	CacheStats    func() models.MCacheStats
	SwitchStats   func() models.MSwitchStats
	LatencyStats  func() models.MLatencyStats
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, reg *resolution.Registry, log *logger.Logger) *DashboardServer {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:   cfg,
		Logger:   log,
		Registry: reg,
		engine:   gin.Default(),
		clients:  make(map[*Client]struct{}),
		// Buffered queue so a burst of merges never blocks the producers
		broadcast:  make(chan *models.MRenderFrame, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	// CORS for the local dashboard frontend
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/stats", s.getStats)
	s.engine.GET("/api/resolutions", s.getResolutions)
	s.engine.GET("/api/batch", s.getBatch)
	s.engine.POST("/api/switch", s.postSwitch)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *DashboardServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting gateway on %s", addr)

	go s.runHub()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) Stop() error {
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.frameMutex.RLock()
	connections := len(s.clients)
	var lastUpdate int64
	if s.latestFrame != nil {
		lastUpdate = s.latestFrame.Timestamp
	}
	s.frameMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": lastUpdate,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getStats(c *gin.Context) {
	out := gin.H{}
	if s.CacheStats != nil {
		out["cache"] = s.CacheStats()
	}
	if s.SwitchStats != nil {
		out["switches"] = s.SwitchStats()
	}
	if s.LatencyStats != nil {
		out["stream_latency"] = s.LatencyStats()
	}
	c.JSON(200, out)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getResolutions(c *gin.Context) {
	c.JSON(200, gin.H{
		"resolutions": s.Registry.All(),
	})
}

// -----------------------------------------------------------------------------

// getBatch serves multi-subject comparison views through the batch loader.
func (s *DashboardServer) getBatch(c *gin.Context) {
	if s.LoadBatch == nil {
		c.JSON(503, gin.H{"error": "batch loading not available"})
		return
	}

	subjectsParam := c.Query("subjects")
	res := c.Query("resolution")
	if subjectsParam == "" || res == "" {
		c.JSON(400, gin.H{"error": "subjects and resolution are required"})
		return
	}
	if _, err := s.Registry.ByKey(res); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	subjects := strings.Split(subjectsParam, ",")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	results := s.LoadBatch(ctx, subjects, res)

	out := make(map[string][]models.MSeriesPoint, len(results))
	for subject, buckets := range results {
		points := make([]models.MSeriesPoint, 0, len(buckets))
		for _, b := range buckets {
			points = append(points, b.Point())
		}
		out[subject] = points
	}

	response := gin.H{"series": out}

	// Overlay mode: align every other subject onto the primary's timestamps.
	if primary := c.Query("align_to"); primary != "" {
		primaryPoints, ok := out[primary]
		if !ok {
			c.JSON(400, gin.H{"error": fmt.Sprintf("align_to subject %q not in results", primary)})
			return
		}

		tolerance := align.DefaultTolerance
		if s.Config.Align.ToleranceSeconds > 0 {
			tolerance = time.Duration(s.Config.Align.ToleranceSeconds) * time.Second
		}

		aligned := make(map[string][]*float64, len(results))
		for subject, buckets := range results {
			if subject == primary {
				continue
			}
			aligned[subject] = align.Align(primaryPoints, buckets, tolerance)
		}
		response["aligned"] = aligned
	}

	c.JSON(200, response)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postSwitch(c *gin.Context) {
	if s.RequestSwitch == nil {
		c.JSON(503, gin.H{"error": "switching not available"})
		return
	}

	var req struct {
		Subject    string `json:"subject"`
		Resolution string `json:"resolution"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request body"})
		return
	}
	if req.Subject == "" || req.Resolution == "" {
		c.JSON(400, gin.H{"error": "subject and resolution are required"})
		return
	}
	if _, err := s.Registry.ByKey(req.Resolution); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	s.RequestSwitch(req.Subject, req.Resolution)
	c.JSON(202, gin.H{"status": "accepted"})
}
