package app

import (
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/sneakerdrop/config"
	"github.com/talkincode/sneakerdrop/internal/purchase"
	"github.com/talkincode/sneakerdrop/internal/store/boltstore"
	"github.com/talkincode/sneakerdrop/internal/store/gormstore"
	"github.com/talkincode/sneakerdrop/pkg/common"
	"github.com/talkincode/sneakerdrop/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Application struct {
	appConfig *config.AppConfig
	store     purchase.Store
	gormStore *gormstore.Store
	sched     *cron.Cron
	bus       EventBus.Bus
}

// Ensure Application implements all interfaces
var (
	_ StoreProvider     = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ BusProvider       = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Store() purchase.Store {
	return a.store
}

// OverrideStore replaces the application's store handle (used in tests).
func (a *Application) OverrideStore(store purchase.Store) {
	a.store = store
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	common.MakeDir(cfg.System.Workdir)

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	// Initialize metrics with workdir convention
	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	// Open the configured store backend
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	switch cfg.Database.Type {
	case "bolt":
		store, err := boltstore.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		a.store = store
	default:
		store, err := gormstore.Open(cfg.Database)
		if err != nil {
			return err
		}
		if err := store.Migrate(); err != nil {
			zap.S().Errorf("database migration failed: %v", err)
		}
		a.gormStore = store
		a.store = store
	}
	zap.S().Infof("store connection successful, type: %s", cfg.Database.Type)

	a.checkSneakers()

	// Purchase events feed the per-status counters
	a.bus = EventBus.New()
	if err := a.bus.Subscribe(purchase.EventTopic, func(status string) {
		metrics.IncrCounter("purchase_result_"+strings.ToLower(status), 1)
	}); err != nil {
		zap.S().Errorf("subscribe purchase events error %s", err.Error())
	}

	a.initJob()
	return nil
}

// MigrateDB updates the relational schema; a no-op on the bolt backend.
func (a *Application) MigrateDB() error {
	if a.gormStore == nil {
		return nil
	}
	return a.gormStore.Migrate()
}

// InitDb drops and recreates the relational schema, then reseeds.
func (a *Application) InitDb() {
	if a.gormStore != nil {
		a.gormStore.DropAll()
		if err := a.gormStore.Migrate(); err != nil {
			zap.S().Error(err)
		}
	}
	a.checkSneakers()
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
