// Package server exposes a running simulation environment over HTTP for the
// visualization frontend. Its only contract with the engine is: advance one
// step, report whether further events remain, and provide the current
// matrices on demand.
package server

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kmirinski/Agent-Based-Simulation/sim"
)

// Server serializes HTTP access to the single-threaded engine: every
// endpoint takes the engine lock, so the dispatch path never runs
// concurrently.
type Server struct {
	mu      sync.Mutex
	env     *sim.Environment
	metrics *Collector
}

// New wraps an environment for serving.
func New(env *sim.Environment) *Server {
	return &Server{env: env, metrics: NewCollector()}
}

// Router builds the gin engine with all endpoints.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/setup", s.handleSetup)
	r.GET("/snapshot", s.handleSnapshot)
	r.GET("/node", s.handleNode)
	r.GET("/link", s.handleLink)
	r.GET("/stats", s.handleStats)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{})))
	return r
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	logrus.Infof("serving simulation on %s", addr)
	return s.Router().Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type nodeView struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

type linkView struct {
	ID             int     `json:"id"`
	StartLongitude float64 `json:"start_longitude"`
	StartLatitude  float64 `json:"start_latitude"`
	EndLongitude   float64 `json:"end_longitude"`
	EndLatitude    float64 `json:"end_latitude"`
}

// handleSetup returns the static network topology the frontend renders once.
func (s *Server) handleSetup(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]nodeView, 0, s.env.Network.NumNodes())
	for _, n := range s.env.Network.Nodes() {
		nodes = append(nodes, nodeView{ID: n.ID, Name: n.Name, Longitude: n.Longitude, Latitude: n.Latitude})
	}
	links := make([]linkView, 0, len(s.env.Network.Links()))
	for _, l := range s.env.Network.Links() {
		links = append(links, linkView{
			ID:             l.ID,
			StartLongitude: l.StartLongitude,
			StartLatitude:  l.StartLatitude,
			EndLongitude:   l.EndLongitude,
			EndLatitude:    l.EndLatitude,
		})
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes, "links": links})
}

// handleSnapshot advances the simulation one step and returns the resulting
// matrices plus the halt signal.
func (s *Server) handleSnapshot(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, more, err := s.env.Step()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.metrics.Observe(s.env)
	c.JSON(http.StatusOK, gin.H{
		"time":       snap.Time,
		"vehicles":   snap.Vehicles,
		"containers": snap.Containers,
		"more":       more,
	})
}

// handleNode returns the per-mode counts stationed at one node.
func (s *Server) handleNode(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := strconv.Atoi(c.Query("node_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid node_id parameter"})
		return
	}
	if _, err := s.env.Network.Node(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	counts := make(map[string]int, len(sim.Modes)+1)
	for _, m := range sim.Modes {
		counts[string(m)] = s.env.Registry.Matrix(m).At(id, id)
	}
	counts["Container"] = s.env.Registry.ContainerMatrix().At(id, id)
	c.JSON(http.StatusOK, gin.H{"node_id": id, "stationed": counts})
}

// handleLink returns the per-mode counts in transit on one origin-destination
// edge.
func (s *Server) handleLink(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	origin, err := strconv.Atoi(c.Query("origin"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid origin parameter"})
		return
	}
	destination, err := strconv.Atoi(c.Query("destination"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid destination parameter"})
		return
	}
	if _, err := s.env.Network.Node(origin); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.env.Network.Node(destination); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	counts := make(map[string]int, len(sim.Modes)+1)
	for _, m := range sim.Modes {
		counts[string(m)] = s.env.Registry.Matrix(m).At(origin, destination)
	}
	counts["Container"] = s.env.Registry.ContainerMatrix().At(origin, destination)
	c.JSON(http.StatusOK, gin.H{"origin": origin, "destination": destination, "in_transit": counts})
}

// handleStats returns the aggregate run statistics.
func (s *Server) handleStats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shares := s.env.Stats.ModalShare()
	modalShare := make(map[string]float64, len(shares))
	distance := make(map[string]float64, len(shares))
	for _, m := range sim.Modes {
		modalShare[string(m)] = shares[m]
		distance[string(m)] = s.env.Stats.DistanceByMode[m]
	}
	c.JSON(http.StatusOK, gin.H{
		"time":               s.env.Clock,
		"completed_requests": s.env.Stats.CompletedRequests,
		"unserved_requests":  s.env.Stats.UnservedRequests,
		"dropped_events":     s.env.Stats.DroppedEvents,
		"distance_by_mode":   distance,
		"modal_share":        modalShare,
	})
}
