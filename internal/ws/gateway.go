// Package ws serves browser clients: it upgrades websocket connections and
// hands them to the same session handler the TCP listener uses, alongside a
// small HTTP API.
package ws

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/linechat/linechat/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Gateway bridges HTTP/WebSocket traffic onto the chat core.
type Gateway struct {
	handle func(net.Conn) // the server's per-connection session entry point
	store  store.Store
	log    *slog.Logger
}

func NewGateway(handle func(net.Conn), st store.Store, log *slog.Logger) *Gateway {
	return &Gateway{handle: handle, store: st, log: log}
}

// Router returns the gateway's HTTP routes.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", g.ServeWS)
	r.HandleFunc("/healthz", g.Health).Methods("GET")
	r.HandleFunc("/users/search", g.SearchUsers).Methods("GET")
	return r
}

// ServeWS upgrades the connection and runs a chat session over it. The
// websocket client speaks the same protocol as a TCP client, starting with
// the handshake token line.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	g.handle(newWSConn(ws))
}

func (g *Gateway) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// SearchUsers returns usernames matching the "q" prefix parameter.
func (g *Gateway) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		json.NewEncoder(w).Encode([]string{})
		return
	}

	users := g.store.SearchUsers(query)
	if users == nil {
		users = []string{}
	}
	json.NewEncoder(w).Encode(users)
}
