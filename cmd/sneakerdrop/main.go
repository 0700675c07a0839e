package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talkincode/sneakerdrop/config"
	"github.com/talkincode/sneakerdrop/internal/app"
	"github.com/talkincode/sneakerdrop/internal/catalog"
	"github.com/talkincode/sneakerdrop/internal/pricing"
	"github.com/talkincode/sneakerdrop/internal/purchase"
	"github.com/talkincode/sneakerdrop/internal/shopapi"
	"github.com/talkincode/sneakerdrop/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	h        = flag.Bool("h", false, "help usage")
	x        = flag.Bool("x", false, "drop and reinitialize the database, then exit")
	conffile = flag.String("c", "sneakerdrop.yml", "config file path")
)

func printHelp() {
	if *h {
		ustr := fmt.Sprintf("sneakerdrop usage:\n\nsneakerdrop [-c conffile] [options]\n\nOptions:")
		fmt.Fprintf(os.Stderr, ustr)
		flag.PrintDefaults()
		os.Exit(0)
	}
}

func main() {
	flag.Parse()
	printHelp()

	appConfig := config.LoadConfig(*conffile)
	application := app.NewApplication(appConfig)
	if err := application.Init(appConfig); err != nil {
		fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
		os.Exit(1)
	}
	defer application.Release()

	if *x {
		application.InitDb()
		zap.S().Info("database initialized")
		return
	}

	engine := pricing.NewEngine(appConfig.Drop.ExchangeRate)
	guard := purchase.NewGuard(
		application.Store(),
		time.Duration(appConfig.Drop.RateWindowSecs)*time.Second,
		appConfig.Drop.MaxAttemptsPerWindow,
	)
	coordinator := purchase.NewCoordinator(application.Store(), guard, engine).
		WithPublisher(application.Bus())
	search := catalog.NewSearch(application.Store(), engine)
	handler := shopapi.NewHandler(
		application.Store(),
		coordinator,
		search,
		time.Duration(appConfig.Drop.LockTimeoutSecs)*time.Second,
	)

	server := webserver.NewWebServer(appConfig)
	handler.Register(server.Echo())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("server stopped with error %s", err.Error())
	}
}
