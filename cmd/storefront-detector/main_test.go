package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/WangYihang/storefront-detector/pkg/infrastructure/logger"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/storage"
	"github.com/WangYihang/storefront-detector/pkg/interface/cli"
)

func replayConfig(t *testing.T, input string) (*cli.Config, string) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"failed","reason":"No Shopify indicators found","is_shopify":false}`)
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache")
	policy := filepath.Join(dir, "policy.yaml")
	policyYAML := fmt.Sprintf("endpoint:\n  base_url: %s\ncache:\n  backend: leveldb\n  path: %s\n", server.URL, cachePath)
	if err := os.WriteFile(policy, []byte(policyYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := cli.ParseArgs([]string{
		"--mode", "replay",
		"-i", input,
		"-o", filepath.Join(dir, "deliveries.jsonl"),
		"-c", policy,
	})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	return config, cachePath
}

// reopen fails while another handle still holds the LevelDB lock
func reopen(t *testing.T, path string) {
	t.Helper()
	store, err := storage.NewLevelDBStore(path)
	if err != nil {
		t.Fatalf("cache store still held after run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		input   func(dir string) string
		wantErr bool
	}{
		{
			name: "replay completes",
			input: func(dir string) string {
				path := filepath.Join(dir, "navigations.txt")
				if err := os.WriteFile(path, []byte("https://plain.example/\n"), 0o644); err != nil {
					t.Fatal(err)
				}
				return path
			},
		},
		{
			name: "missing input",
			input: func(dir string) string {
				return filepath.Join(dir, "absent.txt")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, cachePath := replayConfig(t, tt.input(t.TempDir()))

			err := run(context.Background(), config, logger.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("run() error = %v, wantErr %v", err, tt.wantErr)
			}
			reopen(t, cachePath)
		})
	}
}
