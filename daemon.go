package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	c "Userdb/common"
	"Userdb/config"
	"Userdb/net"
	"Userdb/service"
	"Userdb/storage"

	goversion "github.com/caarlos0/go-version"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "0.1.0"
	commit    = ""
	treeState = ""
	date      = ""
	builtBy   = ""
)

func main() {
	configPath := flag.String("c", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(buildVersion("userdb-daemon", "In-memory user record server").String())
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	closer, err := cfg.Log.Apply(logrus.StandardLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "log: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg.Server, nil); err != nil {
		logrus.Errorf("%s: %v", c.CurFuncName(), err)
		closer.Close()
		os.Exit(1)
	}
}

// run serves the user service until ctx is cancelled or a client asks for a
// shutdown. ready, if not nil, receives the listening address.
func run(ctx context.Context, cfg config.ServerConfig, ready chan<- string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := net.NewServer(cfg.Addr(), cfg.MaxConnections)
	svc := service.NewService(storage.NewStorage(), service.WithShutdownHook(cancel))

	if err := srv.Listen(); err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			logrus.Errorf("Port %d is already in use. Stop the existing server and retry.", cfg.Port)
		}
		return fmt.Errorf("server start failed: %w", err)
	}
	srv.Bind(cfg.ServiceName, svc)

	logrus.Info("==================================")
	logrus.Info(" USER SERVER STARTED SUCCESSFULLY ")
	logrus.Infof(" Address   : %s", srv.Addr())
	logrus.Infof(" Bind name : %s", cfg.ServiceName)
	logrus.Info("==================================")
	if ready != nil {
		ready <- srv.Addr()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		<-gctx.Done()
		logrus.Infof("%s: releasing %s", c.CurFuncName(), cfg.ServiceName)
		srv.Unbind(cfg.ServiceName)

		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, done := context.WithTimeout(context.Background(), timeout)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	logrus.Infof("%s: server stopped", c.CurFuncName())
	return err
}

func buildVersion(app, description string) goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails(app, description, ""),
		func(i *goversion.Info) {
			if commit != "" {
				i.GitCommit = commit
			}
			if version != "" {
				i.GitVersion = version
			}
			if treeState != "" {
				i.GitTreeState = treeState
			}
			if date != "" {
				i.BuildDate = date
			}
			if builtBy != "" {
				i.BuiltBy = builtBy
			}
		},
	)
}
