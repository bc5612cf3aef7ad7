package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/kateb7566/system-health-monitor-etl"
)

func main() {
	rt, err := healthmon.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime exited: %v", err)
	}
}
