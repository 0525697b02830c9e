package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 5 * time.Second

// Server hosts the HTTP and gRPC listeners in front of one Hub. Either
// listener may be absent.
type Server struct {
	hub *Hub

	httpListener net.Listener
	httpServer   *http.Server

	grpcListener net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
}

// NewWithAddr listens on the given addresses. An empty address disables
// that listener.
func NewWithAddr(hub *Hub, httpAddr, grpcAddr string) (*Server, error) {
	var httpLis, grpcLis net.Listener
	var err error
	if httpAddr != "" {
		httpLis, err = net.Listen("tcp", httpAddr)
		if err != nil {
			return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
		}
	}
	if grpcAddr != "" {
		grpcLis, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			if httpLis != nil {
				_ = httpLis.Close()
			}
			return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
		}
	}
	return NewWithListeners(hub, httpLis, grpcLis), nil
}

// NewWithListeners serves on listeners the caller opened.
func NewWithListeners(hub *Hub, httpLis, grpcLis net.Listener) *Server {
	s := &Server{hub: hub, httpListener: httpLis, grpcListener: grpcLis}
	if httpLis != nil {
		s.httpServer = &http.Server{
			Handler:           Handler(hub),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	if grpcLis != nil {
		s.grpcServer = grpc.NewServer()
		s.health = health.NewServer()
		RegisterSessionServiceServer(s.grpcServer, NewSessionService(hub))
		grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
		s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		s.health.SetServingStatus(SessionServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	return s
}

func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Serve runs both listeners until ctx is cancelled or one of them fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	serveErr := make(chan error, 2)
	if s.httpServer != nil {
		log.Printf("http server listening at %v", s.httpListener.Addr())
		go func() {
			err := s.httpServer.Serve(s.httpListener)
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			serveErr <- err
		}()
	}
	if s.grpcServer != nil {
		log.Printf("grpc server listening at %v", s.grpcListener.Addr())
		go func() {
			err := s.grpcServer.Serve(s.grpcListener)
			if errors.Is(err, grpc.ErrServerStopped) {
				err = nil
			}
			serveErr <- err
		}()
	}

	select {
	case <-ctx.Done():
		s.shutdown()
		return nil
	case err := <-serveErr:
		s.shutdown()
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

func (s *Server) shutdown() {
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		cancel()
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}

// Close stops both listeners and detaches every session.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.hub != nil {
		s.hub.Close()
	}
}
