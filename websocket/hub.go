// websocket/hub.go
package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"fieldsched/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type schedHub struct {
	mutex   sync.Mutex
	clients map[string]map[*client]bool // orgID -> connected clients
}

var hub = &schedHub{clients: map[string]map[*client]bool{}}

// ServeWS upgrades the connection and registers the client under its
// organization. The token travels as a query parameter because browsers
// cannot set headers on WebSocket dials.
func ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	orgID := claims.OrganizationID

	hub.mutex.Lock()
	if hub.clients[orgID] == nil {
		hub.clients[orgID] = map[*client]bool{}
	}
	hub.clients[orgID][c] = true
	hub.mutex.Unlock()

	log.Printf("websocket client connected (org %s)", orgID)

	go c.writeLoop()
	go c.readLoop(orgID)
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop discards inbound frames; its job is detecting disconnects.
func (c *client) readLoop(orgID string) {
	defer func() {
		hub.mutex.Lock()
		if clients, ok := hub.clients[orgID]; ok {
			if clients[c] {
				delete(clients, c)
				close(c.send)
			}
		}
		hub.mutex.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
