package main

import (
	"context"
	"net/http"
	"testing"

	"mixdown/internal/logging"
	"mixdown/internal/testsupport"
)

func TestBootstrapWiresServingDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	d, err := bootstrap(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			t.Errorf("close daemon: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	defer d.Stop()

	resp, err := http.Get("http://" + d.Addr() + "/api/modules")
	if err != nil {
		t.Fatalf("modules request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("modules returned %d", resp.StatusCode)
	}
}
