// Package bootstrap собирает зависимости сервиса по конфигурации.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/vix-backend/internal/config"
	"github.com/ignatzorin/vix-backend/internal/db"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/http/router"
	"github.com/ignatzorin/vix-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/vix-backend/internal/infrastructure/notify"
	"github.com/ignatzorin/vix-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/vix-backend/internal/interface/http/handler"
	"github.com/ignatzorin/vix-backend/internal/logger"
	"github.com/ignatzorin/vix-backend/internal/service"
	"github.com/ignatzorin/vix-backend/internal/usecase/account"
	"github.com/ignatzorin/vix-backend/internal/usecase/ledger"
	"github.com/ignatzorin/vix-backend/internal/usecase/packorder"
	"github.com/ignatzorin/vix-backend/internal/usecase/reconcile"
	"github.com/ignatzorin/vix-backend/internal/usecase/serviceorder"
	"github.com/ignatzorin/vix-backend/internal/usecase/tip"
	"github.com/ignatzorin/vix-backend/internal/ws"
)

// Stores - репозитории одного хранилища.
type Stores struct {
	Tx            repository.TxManager
	Accounts      repository.AccountRepository
	Transfers     repository.TransferRepository
	ServiceOrders repository.ServiceOrderRepository
	PackOrders    repository.PackOrderRepository
	Tips          repository.TipRepository
	Ping          func(ctx context.Context) error
	Close         func() error
}

func MemoryStores(s *memory.Store) Stores {
	return Stores{
		Tx:            s,
		Accounts:      s.AccountRepository(),
		Transfers:     s.TransferRepository(),
		ServiceOrders: s.ServiceOrderRepository(),
		PackOrders:    s.PackOrderRepository(),
		Tips:          s.TipRepository(),
		Ping:          s.Ping,
		Close:         func() error { return nil },
	}
}

func SQLStores(conn *sqlx.DB) Stores {
	s := persistence.NewStore(conn)
	return Stores{
		Tx:            s,
		Accounts:      s.Accounts(),
		Transfers:     s.Transfers(),
		ServiceOrders: s.ServiceOrders(),
		PackOrders:    s.PackOrders(),
		Tips:          s.Tips(),
		Ping:          s.Ping,
		Close:         conn.Close,
	}
}

// OpenStores открывает хранилище из конфигурации и при необходимости применяет миграции.
func OpenStores(ctx context.Context, cfg *config.Config, migrate bool) (Stores, error) {
	var (
		conn *sqlx.DB
		err  error
	)
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		logger.Log.Warn("используется хранилище в памяти, данные не переживут перезапуск")
		return MemoryStores(memory.NewStore()), nil
	case config.DriverSQLite:
		conn, err = db.NewSQLite(ctx, cfg.SQLitePath)
	default:
		conn, err = db.NewPostgres(ctx, cfg.DatabaseURL)
	}
	if err != nil {
		return Stores{}, err
	}

	if migrate {
		dir := db.MigrationsDir(cfg.MigrationsPath, cfg.DatabaseDriver)
		if err := db.RunMigrations(ctx, conn, dir); err != nil {
			conn.Close()
			return Stores{}, err
		}
	}
	return SQLStores(conn), nil
}

// Services - прикладной слой поверх хранилища.
type Services struct {
	Ledger        *ledger.Ledger
	Accounts      *account.Service
	ServiceOrders *serviceorder.Engine
	PackOrders    *packorder.Engine
	Tips          *tip.Processor
	Reconciler    *reconcile.Reconciler
}

func NewServices(stores Stores, economy config.Economy, sink repository.NotificationSink) (*Services, error) {
	policy, err := valueobject.NewConversionPolicy(economy.ConversionRate)
	if err != nil {
		return nil, err
	}
	l := ledger.New(stores.Tx, stores.Accounts, stores.Transfers, policy)

	orders := serviceorder.NewEngine(stores.Tx, stores.ServiceOrders, stores.Accounts, l, sink)
	orders.SetMinAmount(economy.MinOrderAmount)

	return &Services{
		Ledger:        l,
		Accounts:      account.NewService(stores.Accounts, stores.Transfers, l),
		ServiceOrders: orders,
		PackOrders:    packorder.NewEngine(stores.Tx, stores.PackOrders, l, sink),
		Tips:          tip.NewProcessor(stores.Tx, stores.Tips, l, sink, economy.MaxTip),
		Reconciler:    reconcile.NewReconciler(stores.Accounts, stores.Transfers, stores.ServiceOrders),
	}, nil
}

// App - собранный HTTP-сервис.
type App struct {
	Config     *config.Config
	Stores     Stores
	Services   *Services
	Hub        *ws.Hub
	Dispatcher *notify.Dispatcher
	Tokens     *service.TokenManager
	Cache      *service.CacheService
	Router     *gin.Engine
	Scheduler  *reconcile.Scheduler

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	stores, err := OpenStores(ctx, cfg, true)
	if err != nil {
		return nil, err
	}
	app := &App{
		Config: cfg,
		Stores: stores,
		Hub:    ws.NewHub(),
		Tokens: service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL),
		Cache:  service.NewCacheService(),
	}
	app.closers = append(app.closers, stores.Close)

	checks := map[string]handler.Pinger{"database": handler.PingFunc(stores.Ping)}
	sinks := []notify.Named{{Name: "ws", Sink: app.Hub}}
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		sinks = append(sinks, notify.Named{Name: "redis", Sink: notify.NewRedisSink(client, cfg.RedisChannel)})
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	} else {
		sinks = append(sinks, notify.Named{Name: "log", Sink: notify.NewLogSink(logger.Component("order_events"))})
	}
	app.Dispatcher = notify.NewDispatcher(sinks...)

	app.Services, err = NewServices(stores, cfg.Economy, app.Dispatcher)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	if cfg.ReconcileSchedule != "" {
		app.Scheduler, err = reconcile.NewScheduler(app.Services.Reconciler, cfg.ReconcileSchedule)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	app.Router = router.SetupRouter(cfg, router.Handlers{
		Accounts:      handler.NewAccountHandler(app.Services.Accounts),
		ServiceOrders: handler.NewServiceOrderHandler(app.Services.ServiceOrders),
		PackOrders:    handler.NewPackOrderHandler(app.Services.PackOrders),
		Tips:          handler.NewTipHandler(app.Services.Tips),
		WS:            handler.NewWSHandler(app.Hub, app.Tokens, cfg.AllowedOrigins),
		Health:        handler.NewHealthHandler(checks),
	}, app.Tokens, app.Cache)

	logger.Log.WithFields(logrus.Fields{
		"driver":          cfg.DatabaseDriver,
		"conversion_rate": cfg.Economy.ConversionRate,
		"redis":           cfg.RedisURL != "",
	}).Info("сервис собран")
	return app, nil
}

// RunBackground запускает хаб, очистку кэша и сверку до отмены ctx.
func (a *App) RunBackground(ctx context.Context) {
	go a.Hub.Run(ctx)
	go a.Cache.Run(ctx, time.Minute)
	if a.Scheduler != nil {
		a.Scheduler.Start()
		go func() {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.Scheduler.Stop(stopCtx)
		}()
	}
}

// Close дожидается фоновых уведомлений и закрывает соединения.
func (a *App) Close() error {
	if a.Dispatcher != nil {
		a.Dispatcher.Wait()
	}
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
