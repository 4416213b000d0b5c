package main

import (
	"context"
	"log"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/bootstrap"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/config"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/server"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/tracer"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer func() {
		if container.AuditPublisher != nil {
			container.AuditPublisher.Close()
		}
		_ = container.SysLogger.Sync()
	}()

	// 3. Initialize Server
	srv := server.New(cfg, container)

	// 4. Run Server
	log.Fatal(srv.Run())
}
