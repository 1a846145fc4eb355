// Command lobbyserver runs the matchmaking lobby service.
//
// The first interrupt broadcasts the shutdown to all connected clients and
// drains the event loop; a second interrupt exits immediately.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/Elekrisk/moba-try-5/internal/config"
	"github.com/Elekrisk/moba-try-5/internal/server"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.FromArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n%s\n", err, config.Usage)
		os.Exit(2)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	srv := server.New(log, cfg)

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		<-interrupts
		log.Info("interrupt received, shutting down")
		srv.Shutdown()
		<-interrupts
		log.Warn("second interrupt, exiting immediately")
		os.Exit(130)
	}()

	if err := srv.Run(context.Background()); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
