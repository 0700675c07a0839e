package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/sneakerdrop/config"
	"github.com/talkincode/sneakerdrop/internal/purchase"
)

// StoreProvider provides purchase store access
type StoreProvider interface {
	Store() purchase.Store
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// BusProvider provides event bus access
type BusProvider interface {
	Bus() EventBus.Bus
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	StoreProvider
	ConfigProvider
	SchedulerProvider
	BusProvider

	// Application lifecycle methods
	MigrateDB() error
	InitDb()
	Release()
}
