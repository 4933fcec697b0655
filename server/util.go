package server

import (
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts every origin. The server binds localhost and fronts a
// local editor, so cross-origin browsers are expected.
func checkOrigin(r *http.Request) bool {
	return true
}

func isPortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// findAvailablePort tries the configured port first, then scans upward so a
// second instance can still come up for inspection.
func findAvailablePort(preferred int) (int, error) {
	if isPortAvailable(preferred) {
		return preferred, nil
	}

	for port := preferred + 1; port <= preferred+100; port++ {
		if isPortAvailable(port) {
			return port, nil
		}
	}

	return 0, fmt.Errorf("no available port in range %d-%d", preferred, preferred+100)
}
