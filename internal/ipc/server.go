package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// maxRequestBytes bounds one request line; large diagnostics reports fit comfortably.
const maxRequestBytes = 8 << 20

// requestReadTimeout bounds how long a client may take to send its request line.
var requestReadTimeout = 5 * time.Second

// Handler processes one IPC request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until context cancellation or listener
// close. Each connection carries exactly one request and one response. Pending
// request reads are abandoned on cancellation so Serve returns promptly.
func Serve(ctx context.Context, listener net.Listener, handler Handler, logger *slog.Logger) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			serveConn(ctx, c, handler, logger)
		}(conn)
	}
}

func serveConn(ctx context.Context, c net.Conn, handler Handler, logger *slog.Logger) {
	_ = c.SetReadDeadline(time.Now().Add(requestReadTimeout))
	stopAbort := context.AfterFunc(ctx, func() {
		_ = c.SetReadDeadline(time.Now())
	})
	defer stopAbort()

	reader := bufio.NewReaderSize(c, 64<<10)
	line, err := readLine(reader)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		reply(c, Response{OK: false, Error: fmt.Sprintf("read request: %v", err)}, logger)
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		reply(c, Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)}, logger)
		return
	}

	if logger != nil {
		logger.Debug("ipc request", "command", req.Command, "documents", len(req.Documents))
	}
	reply(c, handler.Handle(ctx, req), logger)
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxRequestBytes {
			return nil, fmt.Errorf("request exceeds %d bytes", maxRequestBytes)
		}
		if err == nil {
			return line, nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
}

func reply(c net.Conn, resp Response, logger *slog.Logger) {
	if err := json.NewEncoder(c).Encode(resp); err != nil && logger != nil {
		logger.Debug("ipc reply failed", "error", err.Error())
	}
}
