package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
)

func TestAssembler_ReplayEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/status/") {
		case "shop.example":
			fmt.Fprint(w, `{"isShopify":true,"status":"completed"}`)
		default:
			fmt.Fprint(w, `{"isShopify":false,"status":"completed"}`)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "navigations.txt")
	output := filepath.Join(dir, "deliveries.jsonl")
	policy := filepath.Join(dir, "policy.yaml")

	navigations := "# session\n1 https://shop.example/products/1\n2 chrome://extensions\n3 https://blog.example/\n"
	if err := os.WriteFile(input, []byte(navigations), 0o644); err != nil {
		t.Fatal(err)
	}
	policyYAML := fmt.Sprintf("endpoint:\n  base_url: %s\ncache:\n  backend: sqlite\n  path: %s\n", server.URL, filepath.Join(dir, "cache.db"))
	if err := os.WriteFile(policy, []byte(policyYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseArgs([]string{"--mode", "replay", "-i", input, "-o", output, "-c", policy})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}

	rt, err := NewAssembler(cfg, nil).Assemble(context.Background())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if rt.Navigations != 3 || rt.Exporter != nil {
		t.Errorf("navigations = %d, exporter = %v", rt.Navigations, rt.Exporter)
	}

	if err := rt.Coordinator.Execute(context.Background(), rt.Source); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	got := map[entity.DestinationID]entity.ClassificationResult{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var d entity.Delivery
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			t.Fatal(err)
		}
		if d.Message.Type != entity.MessageTypeStatus {
			t.Errorf("message type = %q", d.Message.Type)
		}
		got[d.Destination] = d.Message.Data
	}

	if len(got) != 2 {
		t.Fatalf("deliveries = %+v, want 2", got)
	}
	if r := got["1"]; !r.IsMatch || r.Status != entity.StatusComplete {
		t.Errorf("tab 1 = %+v", r)
	}
	if r := got["3"]; r.IsMatch || r.Status != entity.StatusComplete {
		t.Errorf("tab 3 = %+v", r)
	}

	m := rt.Coordinator.GetMetrics()
	if m.Checks != 2 || m.Delivered != 2 || m.EventsIgnored != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestAssembler_BadInput(t *testing.T) {
	cfg, err := ParseArgs([]string{"--mode", "replay", "-i", filepath.Join(t.TempDir(), "missing.txt"), "-c", writePolicy(t, "cache:\n  backend: memory\n")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewAssembler(cfg, nil).Assemble(context.Background()); err == nil {
		t.Error("expected error for missing navigations file")
	}
}
