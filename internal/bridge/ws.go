package bridge

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StartDashboard serves the WebSocket mirror of the bridge on addr at /ws.
// Each text message is treated as a command line; replies and delivered
// events come back as text messages. This replaces the serial-fed dashboard
// socket of the original deployment.
func (s *Server) StartDashboard(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	go func() {
		_ = http.Serve(ln, mux)
	}()

	return ln.Addr().String(), nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	util.LogInfo("dashboard connected from %s", conn.RemoteAddr())

	out := make(chan string, outBufferSize)
	s.subscribe(out)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for line := range out {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if kind != websocket.TextMessage || len(data) == 0 {
			continue
		}
		s.requests <- Request{
			Line: string(data),
			Reply: func(resp string) {
				select {
				case out <- resp:
				default:
				}
			},
		}
	}

	s.unsubscribe(out)
	close(out)
	<-done
	conn.Close()
	util.LogInfo("dashboard %s disconnected", conn.RemoteAddr())
}
