package bootstrap

import (
	"log"
	"os"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/config"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/controller"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/pkg/logger"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/repository/memory"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/service"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/classifier"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/extraction"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/followup"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/gatekeeper"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/pipeline"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/rejection"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/session"

	pkgNats "github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/nats"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Shared infrastructure (exposed for main.go shutdown)
	AuditPublisher *pkgNats.Publisher
	SysLogger      logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	stdLogger := log.New(os.Stdout, "", log.LstdFlags)

	// 2. Infrastructure
	// NATS audit bus: optional, a chat turn never blocks on it.
	auditPub, err := pkgNats.NewPublisher(cfg.Nats.URL, cfg.Nats.AuditStreamName, cfg.Nats.AuditSubjectBase)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		auditPub = nil
	}

	// In-memory session storage with sliding TTL.
	sessionRepo := memory.NewSessionRepository(cfg.Therapy.SessionTTL)

	// 3. Conversation components
	sessions := session.NewManager(sessionRepo, stdLogger)
	gate := gatekeeper.NewGatekeeper(stdLogger)
	followups := followup.NewSelector(stdLogger)
	rejections := rejection.NewHandler(stdLogger)
	orchestrator := pipeline.NewOrchestrator(stdLogger, cfg.Therapy.MealPlanDays)

	var classify classifier.Classifier = classifier.NewRuleBased(stdLogger)
	var extract extraction.Extractor = extraction.NewTextExtractor(stdLogger)

	// 4. Services
	chatService := service.NewChatService(
		sessions,
		gate,
		followups,
		rejections,
		orchestrator,
		classify,
		extract,
		nil, // document extraction wired when an OCR backend is configured
		auditPub,
		sysLogger,
		cfg.Therapy.MaxSlotRetry,
	)

	// 5. Controllers
	chatController := controller.NewChatController(chatService)

	return &Container{
		ChatController: chatController,
		AuditPublisher: auditPub,
		SysLogger:      sysLogger,
	}
}
