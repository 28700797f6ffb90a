// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// RPCHTTPClient is the shared client for blockchain node calls. A single
// JSON-RPC request should never run anywhere near this long.
var RPCHTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}
