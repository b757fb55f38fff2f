package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"brewdrop_back_end/internal/database"
	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/notify"
	"brewdrop_back_end/internal/status"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// the mobile app sends no Origin
		return true
	},
}

type OrderHandler struct {
	poller *status.Poller
}

func NewOrderHandler(p *status.Poller) *OrderHandler {
	return &OrderHandler{poller: p}
}

// location reads optional lat/lng query values.
func location(c *gin.Context) *status.Coordinate {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &status.Coordinate{Lat: lat, Lng: lng}
}

// Get returns one poll of the order.
func (h *OrderHandler) Get(c *gin.Context) {
	v, err := h.poller.Snapshot(c.Request.Context(), c.Param("id"), location(c))
	if err != nil {
		if errors.Is(err, status.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "partial": true})
			return
		}
		log.Printf("❌ Order %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *OrderHandler) QRCode(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.poller.Snapshot(c.Request.Context(), id, nil); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": status.ErrOrderNotFound.Error()})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	if size > 1024 {
		size = 1024
	}
	png, err := notify.PickupQR(id, size)
	if err != nil {
		log.Printf("❌ QR code for %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render QR code"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// liveMessage is what the client sends on the live socket.
type liveMessage struct {
	Type    string  `json:"type"`
	Stars   int     `json:"stars,omitempty"`
	Comment string  `json:"comment,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

// socket serializes writes; gorilla allows one concurrent writer.
type socket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socket) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(v)
}

func (s *socket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

// Live streams status views over a WebSocket until the order is rated or
// the client goes away. The client confirms receipt, rates, and shares its
// position through the same socket.
func (h *OrderHandler) Live(c *gin.Context) {
	orderID := c.Param("id")
	userID := c.GetString("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := &socket{conn: conn}
	tracker := status.NewTracker()
	if from := location(c); from != nil {
		tracker.SetLocation(*from)
	}

	go h.readLoop(ctx, cancel, ws, tracker, orderID, userID)
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := ws.ping(); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	err = h.poller.Run(ctx, orderID, tracker, func(v status.View) error {
		return ws.send(gin.H{"type": "status", "view": v})
	})
	if err == nil {
		ws.send(gin.H{"type": "closed", "state": status.Thanked})
		log.Printf("✅ Live tracking of %s finished", orderID)
		return
	}
	if !errors.Is(err, context.Canceled) {
		log.Printf("⚠️ Live tracking of %s stopped: %v", orderID, err)
	}
}

func (h *OrderHandler) readLoop(ctx context.Context, cancel context.CancelFunc, ws *socket, t *status.Tracker, orderID, userID string) {
	defer cancel()
	for {
		var msg liveMessage
		if err := ws.conn.ReadJSON(&msg); err != nil {
			return
		}

		var err error
		switch msg.Type {
		case "location":
			t.SetLocation(status.Coordinate{Lat: msg.Lat, Lng: msg.Lng})
			continue
		case "received":
			err = t.ConfirmReceived()
		case "rating":
			err = h.poller.SubmitRating(ctx, t, models.Rating{
				OrderID: orderID,
				UserID:  userID,
				Stars:   msg.Stars,
				Comment: msg.Comment,
			})
			if errors.Is(err, database.ErrAlreadyRated) {
				err = status.ErrAlreadyRated
			}
		default:
			err = errors.New("unknown message type")
		}

		reply := gin.H{"type": "state", "state": t.State()}
		if err != nil {
			reply = gin.H{"type": "error", "error": err.Error(), "state": t.State()}
		}
		if werr := ws.send(reply); werr != nil {
			return
		}
	}
}
