package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/kateb7566/system-health-monitor-etl"
)

func main() {
	cfg, err := healthmon.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sink, samples, closeSamples := healthmon.NewChannelSink("fanout", 32)
	defer closeSamples()

	go fanoutWorker("alerts", samples)

	rt, err := healthmon.NewRuntime(cfg, healthmon.WithSink(sink))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, samples <-chan *healthmon.Sample) {
	for s := range samples {
		if s.CPUPercent > 90 {
			fmt.Printf("[%s] cpu at %.1f%% at %s\n", name, s.CPUPercent, s.Timestamp.Format(time.RFC3339))
		}
	}
}
