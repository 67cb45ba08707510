package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"mixdown/internal/catalog"
	"mixdown/internal/config"
	"mixdown/internal/daemon"
	"mixdown/internal/dispatch"
	"mixdown/internal/logging"
	"mixdown/internal/module"
	"mixdown/internal/server"
	"mixdown/internal/session"
	"mixdown/internal/storage"
	"mixdown/internal/testsupport"
)

func newDaemon(t *testing.T) (*daemon.Daemon, *config.Config, *catalog.Store, *session.Manager) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	registry := module.NewRegistry()
	workspaces := storage.NewWorkspaces(cfg, logger)
	controller := dispatch.NewController(store, registry, workspaces, logger)
	manager := session.NewManager(cfg, store, registry, controller, workspaces, logger)

	api, err := server.New(server.Options{
		Config:   cfg,
		Store:    store,
		Manager:  manager,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	d, err := daemon.New(cfg, store, manager, api.Handler(), nil, logger)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d, cfg, store, manager
}

func TestDaemonServesAndStops(t *testing.T) {
	d, _, _, _ := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	defer d.Stop()

	if !d.Running() {
		t.Fatal("daemon should report running after Start")
	}
	addr := d.Addr()
	if addr == "" {
		t.Fatal("daemon did not expose a bound address")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("healthz request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz returned %d", resp.StatusCode)
	}

	resp, err = http.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	defer resp.Body.Close()
	var status server.StatusView
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatal("status endpoint should report running")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should not report running after Stop")
	}
}

// TestDaemonStartThenImmediateStop stops the daemon before the background
// goroutines have necessarily been scheduled; Stop must wait for them rather
// than tearing the server out from under a goroutine that has yet to run.
func TestDaemonStartThenImmediateStop(t *testing.T) {
	d, _, _, _ := newDaemon(t)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := d.Start(ctx); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		d.Stop()
		if d.Running() {
			t.Fatalf("daemon still running after stop %d", i)
		}
	}
}

// TestDaemonSingleInstance checks the lock from a separate process, since
// that is the boundary the lock file actually guards. The helper branch runs
// in the re-executed test binary.
func TestDaemonSingleInstance(t *testing.T) {
	if path := os.Getenv("MIXDOWND_TEST_LOCK_PATH"); path != "" {
		lock := flock.New(path)
		ok, err := lock.TryLock()
		if err != nil {
			fmt.Println("lock error:", err)
			os.Exit(2)
		}
		if ok {
			_ = lock.Unlock()
			fmt.Println("acquired")
		} else {
			fmt.Println("held")
		}
		os.Exit(0)
	}

	d, _, _, _ := newDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	defer d.Stop()

	cmd := exec.Command(os.Args[0], "-test.run=TestDaemonSingleInstance$", "-test.v")
	cmd.Env = append(os.Environ(), "MIXDOWND_TEST_LOCK_PATH="+d.LockPath())
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("lock helper process: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "held") {
		t.Fatalf("second process acquired the daemon lock:\n%s", out)
	}
}
