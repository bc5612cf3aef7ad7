package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/kateb7566/system-health-monitor-etl/pkg/healthmon"
)

func main() {
	// memory:// and an empty DB_URL keep everything in process.
	cfg, err := healthmon.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Redis.URL = "memory://"
	cfg.Database.URL = ""

	printer := healthmon.NewCallbackSink("stdout", func(s *healthmon.Sample) error {
		fmt.Printf("%s cpu=%.1f%% mem_used=%.0f disk_used=%.0f\n",
			s.Timestamp.Format(time.RFC3339),
			s.CPUPercent,
			s.Memory["used"],
			s.Disk["used"],
		)
		return nil
	})

	rt, err := healthmon.NewRuntime(cfg, healthmon.WithSink(printer))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
