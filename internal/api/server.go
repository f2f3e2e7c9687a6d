package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/dltool/internal/app"
)

// Server is the optional read-only status endpoint.
type Server struct {
	app  *app.Context
	srv  *http.Server
	addr net.Addr
}

func NewServer(app *app.Context, addr string) *Server {
	e := echo.New()
	RegisterRoutes(e, app)

	return &Server{
		app: app,
		srv: &http.Server{
			Addr:              addr,
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.app.Logger.Error("Status server stopped: %v", err)
		}
	}()

	s.app.Logger.Info("Status server listening on %s", s.addr)
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() net.Addr {
	return s.addr
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
