// Package ws implements the WebSocket protocol layer (RFC 6455): the client
// opening handshake, the server's side of it, and the frame/message codec
// that runs over the upgraded byte stream.
//
// # Scope
//
// The package deliberately does not implement an HTTP stack. The client
// handshake is issued through an ordinary *http.Client, and the upgraded
// connection is taken over from the HTTP layer once the server answers
// 101 Switching Protocols. TLS, proxies, DNS and connection pooling all
// belong to that collaborator. Compression extensions are not supported;
// frames with reserved bits set are rejected.
//
// # Dialing
//
//	conn, err := ws.Dial(ctx, "wss://example.com/feed")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	for {
//	    msg, err := conn.ReadMessage()
//	    if err != nil {
//	        break
//	    }
//	    switch msg.Type {
//	    case ws.TextMessage:
//	        fmt.Println(string(msg.Data))
//	    case ws.CloseMessage:
//	        code, reason, _ := ws.ParseClose(msg.Data)
//	        fmt.Println("closed:", code, reason)
//	    }
//	}
//
// A Dialer value gives control over the HTTP client, extra handshake headers,
// outbound fragmentation and logging.
//
// # Serving
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//	    conn, err := ws.Upgrade(w, r, nil)
//	    if err != nil {
//	        http.Error(w, err.Error(), http.StatusBadRequest)
//	        return
//	    }
//	    defer conn.Close()
//	    // echo
//	    for {
//	        msg, err := conn.ReadMessage()
//	        if err != nil {
//	            return
//	        }
//	        if msg.Type == ws.TextMessage || msg.Type == ws.BinaryMessage {
//	            _ = conn.WriteMessage(msg)
//	        }
//	    }
//	})
//
// # Error handling
//
// Failures are a closed set of sentinel errors plus *StatusError, which
// preserves a non-101 handshake status. Protocol violations (malformed
// frames, reserved bits, oversized control frames, invalid UTF-8, bad
// fragmentation sequencing) are terminal: the connection must be dropped,
// since the framing has nothing to resynchronize on. A peer's Close arrives
// as a regular CloseMessage, not an error.
//
// # Concurrency
//
// A Conn expects a single reading goroutine; writes are serialized
// internally and may run concurrently with the reader.
package ws
