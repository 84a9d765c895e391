package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"

	"ftc-platform/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewRouter, NewHttpServer),
	fx.Invoke(Run),
)

type Server struct {
	server *http.Server
	certs  *certReloader
}

type Params struct {
	fx.In
	Config  *config.Config
	Handler *gin.Engine
}

// NewHttpServer fails when TLS is enabled and the initial keypair cannot be
// loaded; later reload failures keep the old certificate.
func NewHttpServer(p Params) (*Server, error) {
	cfg := p.Config
	srv := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Addr),
			Handler:      p.Handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}

	if cfg.TLS.Enable {
		srv.certs = newCertReloader(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		if err := srv.certs.reload(); err != nil {
			return nil, fmt.Errorf("load tls keypair: %w", err)
		}
		srv.server.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: srv.certs.GetCertificate,
		}
	}
	return srv, nil
}

func Run(lc fx.Lifecycle, srv *Server) {
	watchCtx, stopWatch := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.server.Addr)
			if err != nil {
				stopWatch()
				return err
			}

			if srv.certs != nil {
				go srv.certs.watch(watchCtx)
			}

			go func() {
				log := zap.L().With(zap.String("addr", srv.server.Addr), zap.Bool("tls", srv.certs != nil))
				log.Info("Starting HTTP server")

				var err error
				if srv.certs != nil {
					err = srv.server.ServeTLS(ln, "", "")
				} else {
					err = srv.server.Serve(ln)
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopWatch()
			zap.L().Info("Shutting down HTTP server gracefully...")
			return srv.server.Shutdown(ctx)
		},
	})
}
