package app

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/talkincode/sneakerdrop/internal/purchase"
	"github.com/talkincode/sneakerdrop/pkg/metrics"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedProcessMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 60s", func() {
		a.SchedDropStatsTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		a.SchedPruneOrdersTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	// Collect CPU usage
	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge("system_cpuuse", int64(_cpuuse[0]*100)) // percentage * 100
	}

	// Collect memory usage
	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge("system_memuse", int64(_meminfo.Used/1024/1024))
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	if meminfo, err := p.MemoryInfo(); err == nil && meminfo != nil {
		metrics.SetGauge("process_memuse", int64(meminfo.RSS/1024/1024))
	}
	if cpuuse, err := p.CPUPercent(); err == nil {
		metrics.SetGauge("process_cpuuse", int64(cpuuse*100))
	}
}

// SchedDropStatsTask snapshots the remaining stock and the orders placed
// in the last minute.
func (a *Application) SchedDropStatsTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sneakers, err := a.store.ListSneakers(ctx)
	if err != nil {
		zap.L().Error("drop stats sneaker listing failed", zap.Error(err))
		return
	}
	var remaining int64
	for _, snk := range sneakers {
		for _, count := range snk.Sizes {
			remaining += int64(count)
		}
	}
	metrics.SetGauge("drop_stock_remaining", remaining)

	orders, err := a.store.ListOrders(ctx, purchase.OrderFilter{From: time.Now().Add(-time.Minute)})
	if err != nil {
		zap.L().Error("drop stats order listing failed", zap.Error(err))
		return
	}
	metrics.SetGauge("drop_orders_per_minute", int64(len(orders)))
}

// SchedPruneOrdersTask removes ledger rows past the retention period.
// Retention is measured in days, so the cutoff stays far outside the
// guard's trailing window.
func (a *Application) SchedPruneOrdersTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	retention := a.appConfig.Drop.OrderRetentionDays
	if retention <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -retention)
	deleted, err := a.store.DeleteOrdersBefore(ctx, cutoff)
	if err != nil {
		zap.L().Error("order prune failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		zap.L().Info("pruned old orders", zap.Int64("deleted", deleted))
	}
}
