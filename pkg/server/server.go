// Package server runs the osmdelta MCP server over stdio and HTTP.
package server

import (
	"context"
	"io"
	"log/slog"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/osmdelta/pkg/change"
	"github.com/NERVsystems/osmdelta/pkg/store"
	"github.com/NERVsystems/osmdelta/pkg/tools"
	"github.com/NERVsystems/osmdelta/pkg/version"
)

// ServerName is the name of the MCP server
const ServerName = "osmdelta-mcp-server"

// Config holds the server dependencies. Store may be nil.
type Config struct {
	Logger *slog.Logger
	Store  store.Store
	Merger *change.BatchMerger
}

// Server encapsulates the MCP server with the change merge tools.
type Server struct {
	srv       *mcpserver.MCPServer
	registry  *tools.Registry
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
	mu        sync.Mutex
	once      sync.Once
	ctxCancel context.CancelFunc
	ctxOnce   sync.Once
}

// NewServer creates an MCP server with all tools and prompts registered.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing MCP server",
		"name", ServerName,
		"version", version.BuildVersion,
		"store", cfg.Store != nil)

	srv := mcpserver.NewMCPServer(
		ServerName,
		version.BuildVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	registry := tools.NewRegistry(logger, cfg.Store, cfg.Merger)
	registry.RegisterAll(srv)

	return &Server{
		srv:      srv,
		registry: registry,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run serves MCP over stdin/stdout and blocks until the server stops.
func (s *Server) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer close(s.doneCh)
		if err := mcpserver.ServeStdio(s.srv); err != nil && err != io.EOF {
			s.logger.Error("server error", "error", err)
		}
		s.Shutdown()
	}()

	<-s.stopCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	<-s.doneCh
	return nil
}

// RunWithContext runs the server and shuts it down when ctx is cancelled.
func (s *Server) RunWithContext(ctx context.Context) error {
	s.ctxOnce.Do(func() {
		derived, cancel := context.WithCancel(ctx)
		s.ctxCancel = cancel

		go func() {
			select {
			case <-derived.Done():
				s.Shutdown()
			case <-s.stopCh:
			}
		}()
	})

	return s.Run()
}

// Shutdown initiates a graceful shutdown and returns immediately.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.once.Do(func() {
		close(s.stopCh)
	})
	if s.ctxCancel != nil {
		s.ctxCancel()
	}
}

// WaitForShutdown blocks until the server has fully shut down.
func (s *Server) WaitForShutdown() {
	<-s.doneCh
}

// GetMCPServer returns the underlying MCP server for other transports
func (s *Server) GetMCPServer() *mcpserver.MCPServer {
	return s.srv
}

// ToolNames lists the registered tools
func (s *Server) ToolNames() []string {
	return s.registry.GetToolNames()
}
