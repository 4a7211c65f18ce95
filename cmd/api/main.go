package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/application/inventory"
	"github.com/jhoicas/facturacion-sri/internal/application/usecase"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/lock"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/mail"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/facturacion-sri/internal/infrastructure/pdf"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/postgres"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
	httpRouter "github.com/jhoicas/facturacion-sri/internal/interfaces/http"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// devJWTSecret solo se usa en desarrollo cuando JWT_SECRET no está definido.
const devJWTSecret = "dev-secret-no-usar-en-produccion"

// txRunner transacciones para inventario y facturación sobre el mismo almacenamiento.
type txRunner interface {
	billing.BillingTxRunner
	inventory.TxRunner
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.Storage.Driver).
		Str("sri_environment", cfg.SRI.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// Almacenamiento: PostgreSQL o memoria (solo para desarrollo y demos)
	var (
		runner txRunner
		repos  repository.Repositories
	)
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		runner, repos = store, store.Repositories()
	default:
		if cfg.DB.MigrateOnStart {
			if err := postgres.Migrate(cfg.DB.ConnectionString(), log.Component("migrate")); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		runner, repos = postgres.NewTxRunner(pool), postgres.NewRepositories(pool)
	}

	// Compuerta de creación y guarda de idempotencia: Redis si hay varias réplicas, memoria si no
	var (
		gate  billing.CreationGate
		guard billing.IdempotencyGuard
	)
	if cfg.Redis.Enabled() {
		rdb, err := lock.NewRedisClient(ctx, lock.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		gate = lock.NewRedisGate(rdb, "sri:gate:", cfg.Redis.LockTTL, cfg.Redis.LockTTL)
		guard = lock.NewRedisGuard(rdb, "sri:guard:", cfg.Redis.LockTTL)
	} else {
		gate, guard = lock.NewLocalGate(), lock.NewLocalGuard()
	}

	policy, err := inventory.ParseRestorePolicy(cfg.SRI.RestorePolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("política de reingreso")
	}
	ledger := inventory.NewStockLedger(policy)

	// Firma XAdES-BES con el .p12 del emisor; sin certificado solo en desarrollo
	var cert *signer.Certificate
	if cfg.SRI.CertPath != "" {
		cert, err = signer.LoadFromP12(cfg.SRI.CertPath, cfg.SRI.CertPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("certificado de firma")
		}
	}
	docSigner := infrasri.NewDocumentSigner(cert, cfg.App.IsDevelopment(), log.Component("signer"))

	var authority billing.AuthorityClient
	if cfg.App.IsDevelopment() {
		log.Warn().Msg("SRI simulado: los comprobantes se autorizan localmente")
		authority = infrasri.NewDevClient(log.Component("sri"))
	} else {
		authority = infrasri.NewSOAPClient(cfg.SRI.ReceptionURL, cfg.SRI.AuthorizationURL, cfg.SRI.RequestTimeout, log.Component("sri"))
	}

	renderer := infrapdf.NewRIDERenderer()
	var notifier billing.Notifier
	if cfg.SMTP.Enabled() {
		notifier = mail.NewSMTPNotifier(cfg.SMTP)
	}
	notifications := billing.NewNotificationService(notifier, renderer, log.Component("notifications"))

	payloads := billing.NewPayloadSigner(docSigner, billing.SRIConfig{
		Environment: cfg.SRI.Environment,
		NumericCode: cfg.SRI.NumericCode,
	}, log.Component("payload"))

	orchestrator := billing.NewAuthorizationOrchestrator(
		runner, repos, authority, guard, gate, ledger, payloads, notifications,
		billing.OrchestratorConfig{
			RetryDelays:        cfg.SRI.RetryDelays,
			Timeout:            cfg.SRI.TaskTimeout,
			RestoreOnRejection: cfg.SRI.RestoreOnRejection,
		},
		log.Component("orchestrator"),
	)

	stockUC := inventory.NewStockUseCase(runner, repos)
	billingLog := log.Component("billing")

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60, // la consulta de estado puede esperar al SRI
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		log.Warn().Msg("JWT_SECRET vacío: se usa el secreto de desarrollo")
		jwtSecret = devJWTSecret
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		CompanyUC:     usecase.NewCompanyUseCase(repos.Companies),
		CustomerUC:    usecase.NewCustomerUseCase(repos.Customers),
		ProductUC:     usecase.NewProductUseCase(repos.Products, stockUC),
		StockUC:       stockUC,
		CreateInvoice: billing.NewCreateInvoiceUseCase(runner, repos, gate, ledger, payloads, orchestrator, billingLog),
		CreateNote:    billing.NewCreateCreditNoteUseCase(runner, repos, gate, payloads, orchestrator, billingLog),
		Receivables:   billing.NewReceivableUseCase(runner, repos),
		Orchestrator:  orchestrator,
		PDF:           billing.NewPDFUseCase(repos, renderer),
		JWTSecret:     jwtSecret,
		Health: dto.HealthResponse{
			Status:  "ok",
			Storage: cfg.Storage.Driver,
			SRI:     cfg.SRI.Environment,
		},
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Los envíos al SRI en curso terminan antes de cerrar el pool
	if err := orchestrator.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tareas del SRI pendientes al apagar")
	}

	log.Info().Msg("aplicación detenida")
}
