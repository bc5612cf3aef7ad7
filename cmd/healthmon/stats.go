package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var statKeys = []string{
	"hm_samples_collected_total",
	"hm_samples_ingested_total",
	"hm_collect_cycles_failed_total",
	"hm_queue_length",
	"hm_cache_size",
	"hm_active_viewers",
}

func streamStats(ctx context.Context, url string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(ctx, url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	vals, err := scanMetrics(resp.Body, statKeys)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] collected=%.0f ingested=%.0f failed_cycles=%.0f queue=%.0f cache=%.0f viewers=%.0f\n",
		time.Now().Format(time.RFC3339),
		vals["hm_samples_collected_total"],
		vals["hm_samples_ingested_total"],
		vals["hm_collect_cycles_failed_total"],
		vals["hm_queue_length"],
		vals["hm_cache_size"],
		vals["hm_active_viewers"],
	)
	return nil
}

// scanMetrics reads unlabelled samples for keys from the text exposition
// format. Missing keys read as zero.
func scanMetrics(r io.Reader, keys []string) (map[string]float64, error) {
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		out[k] = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range keys {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					out[key] = value
				}
			}
		}
	}
	return out, scanner.Err()
}
