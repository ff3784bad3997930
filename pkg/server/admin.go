package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/perspectron/perspectron/pkg/config"
	handlers "github.com/perspectron/perspectron/pkg/handlers/http"
)

type (
	AdminServerDI struct {
		HandlerTransport handlers.HandlerTransport
		Config           *config.Config
		Logger           *logrus.Logger
	}
	AdminServer struct {
		*BaseServer
		handlerTransport handlers.HandlerTransport
	}
)

func NewAdminServer(di AdminServerDI) *AdminServer {
	return &AdminServer{
		BaseServer:       NewBaseServer(di.Config, di.Logger),
		handlerTransport: di.HandlerTransport,
	}
}

func (s *AdminServer) Run() error {
	s.setupRoutes()
	s.setupHealthCheck()
	s.setupMetricsEndpoint()

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.AdminPort)
	s.Logger.WithField("addr", addr).Info("starting admin server")
	return s.Router.Listen(addr)
}

func (s *AdminServer) setupRoutes() {
	v1 := s.Router.Group("/api/v1")
	{
		bl := v1.Group("/blacklist")
		{
			bl.Get("", s.handlerTransport.ListBlacklistHandler.Handle)
			bl.Post("", s.handlerTransport.AddBlacklistHandler.Handle)
			bl.Delete("", s.handlerTransport.DeleteBlacklistHandler.Handle)
		}
		v1.Get("/policy", s.handlerTransport.GetPolicyHandler.Handle)
	}
}

func (s *AdminServer) Shutdown() error {
	return s.Router.Shutdown()
}
