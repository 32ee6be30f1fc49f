// Command dircproxyd is the proxy's entrypoint: load the connection-class
// configuration, start the daemon, and wait for a signal to shut down.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/presbrey/dircproxy/internal/admin"
	"github.com/presbrey/dircproxy/internal/class"
	"github.com/presbrey/dircproxy/internal/daemon"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "dircproxy.yaml", "path to the connection-class configuration file")
	serverTag := flag.String("server-name", "proxy.dircproxy", "server name rendered in welcome numerics")
	flag.Parse()

	cfg, err := class.Load(*configPath)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	d := daemon.New(cfg, *serverTag, version)

	var adminSrv *admin.Server
	if cfg.AdminAddr != "" {
		adminSrv = admin.New(cfg.AdminAddr, d.Metrics())
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil {
				log.Printf("admin server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("received %s, shutting down\n", sig)
		if adminSrv != nil {
			adminSrv.Shutdown()
		}
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		log.Fatalf("dircproxyd exited: %v", err)
	}
}
