package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AtRiskMedia/keystone/aggregator"
	"github.com/AtRiskMedia/keystone/analyzer"
	"github.com/AtRiskMedia/keystone/backendref"
	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/delegateref"
	"github.com/AtRiskMedia/keystone/internal/obslog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP query surface and websocket status relay",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := obslog.New(os.Stdout, slog.LevelInfo)

	backend, err := backendref.NewSQLite(viper.GetString("sqlite_path"), logger.Backend())
	if err != nil {
		return err
	}
	delegate := delegateref.NewMemory()

	relay := newStatusRelay()
	go relay.run()
	delegate.OnStatus = relay.StatusChanged

	config := analyzer.Config{
		UserIdentifier:    viper.GetString("user_identifier"),
		CreateSearchIndex: viper.GetBool("create_search_index"),
		Logger:            logger,
	}

	builder := analyzer.NewBuilder(config)
	builder.Category("generic").
		Column("value").
		Aggregator("value-stats", func() aggregator.Aggregator { return aggregator.NewNumericStats("value-stats") }).
		Column("value").
		Aggregator("value-count", func() aggregator.Aggregator { return aggregator.NewCounting("value-count") })
	builder.Category("generic").Aggregator("event-count", func() aggregator.Aggregator { return aggregator.NewCounting("event-count") })

	az, err := builder.Build(context.Background(), backend, delegate)
	if err != nil {
		return err
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}))

	router.GET("/aggregators/:id", func(c *gin.Context) {
		interval, err := parseInterval(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		agg, err := az.FindAggregator(c.Request.Context(), c.Param("id"), interval)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		data, ok, err := agg.Encode()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"id": agg.ID(), "stateless": true})
			return
		}
		c.Data(http.StatusOK, "application/json", data)
	})

	router.GET("/events", func(c *gin.Context) {
		interval, err := parseInterval(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		events, err := az.Events(c.Request.Context(), interval)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, events)
	})

	router.GET("/ws/status", relay.handle)

	addr := viper.GetString("listen_addr")
	logger.System().Info("keystone serving", "addr", addr)
	return router.Run(addr)
}

// parseInterval reads intervalStart/intervalEnd query params (unix
// seconds). When both are missing it returns the all-time interval;
// when only one is missing it returns a parse error.
func parseInterval(c *gin.Context) (calendar.Interval, error) {
	startStr := c.Query("intervalStart")
	endStr := c.Query("intervalEnd")
	if startStr == "" && endStr == "" {
		return calendar.AllTime(), nil
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return calendar.Interval{}, err
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return calendar.Interval{}, err
	}
	return calendar.New(time.Unix(start, 0).UTC(), time.Unix(end, 0).UTC()), nil
}

// statusClient represents a single connected status observer.
type statusClient struct {
	conn *websocket.Conn
	send chan collab.Status
}

// statusRelay forwards status_changed notifications from the delegate
// to connected websocket observers: register/unregister channels feed
// a single owning goroutine, and each client drains its own buffered
// send channel so a slow reader can't block the others.
type statusRelay struct {
	upgrader   websocket.Upgrader
	clients    map[*statusClient]bool
	register   chan *statusClient
	unregister chan *statusClient
	broadcast  chan collab.Status
	mu         sync.RWMutex
}

func newStatusRelay() *statusRelay {
	return &statusRelay{
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:    make(map[*statusClient]bool),
		register:   make(chan *statusClient),
		unregister: make(chan *statusClient),
		broadcast:  make(chan collab.Status, 16),
	}
}

// run is the relay's single owning goroutine. It must be started before
// any status notifications are pushed.
func (s *statusRelay) run() {
	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			s.mu.Unlock()

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.mu.Unlock()

		case status := <-s.broadcast:
			s.mu.RLock()
			for client := range s.clients {
				select {
				case client.send <- status:
				default:
				}
			}
			s.mu.RUnlock()
		}
	}
}

func (s *statusRelay) handle(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := &statusClient{conn: conn, send: make(chan collab.Status, 8)}
	s.register <- client
	go s.pump(client)
}

// pump writes queued status updates to a single client until its send
// channel is closed by unregister, then closes the connection.
func (s *statusRelay) pump(client *statusClient) {
	defer client.conn.Close()
	for status := range client.send {
		if err := client.conn.WriteJSON(status); err != nil {
			s.unregister <- client
			return
		}
	}
}

// StatusChanged notifies the relay of a new status; it satisfies the
// signature delegateref.Memory.OnStatus expects.
func (s *statusRelay) StatusChanged(status collab.Status) {
	s.broadcast <- status
}
