package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nekomirai/Tik_Record/config"
	"github.com/nekomirai/Tik_Record/live"
	"github.com/nekomirai/Tik_Record/live/plugins"
	"github.com/nekomirai/Tik_Record/live/videoworker"
	"github.com/nekomirai/Tik_Record/utils"
	"github.com/nekomirai/Tik_Record/web"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configFile := flag.String("config", "config.json", "config file path")
	flag.Parse()

	config.InitConfig(*configFile)
	config.InitLog()
	config.InitProfiling()

	utils.InitPubSub(config.Config.RedisHost)
	if _, err := utils.MakeDir(config.Config.DownloadDir); err != nil {
		log.Fatalf("Download dir not creatable: %s", err)
	}

	registry := videoworker.NewRegistry()
	pm := &videoworker.PluginManager{}
	pm.AddPlugin(&plugins.PluginNotifier{})
	pm.AddPlugin(&plugins.PluginPublisher{})
	pm.AddPlugin(plugins.NewPluginHistory(config.Config.DataDir))

	watcher := live.NewWatcher(registry, pm)
	server := web.NewServer(watcher, registry)
	server.Start(config.Config.WebHost)

	ctx, cancel := context.WithCancel(context.Background())
	watcherDone := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(watcherDone)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Infof("Shutdown signal received, stopping sessions...")

	cancel()
	registry.StopAll()
	<-watcherDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	log.Infof("Bye")
}
