package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/storage"
	"github.com/jonboulle/clockwork"
)

func TestLoadNavigations(t *testing.T) {
	input := `
# recorded session
https://shop.example/
42 https://other.example/cart
   https://third.example/
`
	got, err := LoadNavigations(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := []Navigation{
		{Destination: "1", URL: "https://shop.example/"},
		{Destination: "42", URL: "https://other.example/cart"},
		{Destination: "3", URL: "https://third.example/"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("navigation %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadNavigations_Malformed(t *testing.T) {
	if _, err := LoadNavigations(strings.NewReader("1 https://a.example/ extra\n")); err == nil {
		t.Error("expected error for three fields")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navigations.txt")
	if err := os.WriteFile(path, []byte("https://shop.example/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path)
	if err != nil || len(got) != 1 {
		t.Fatalf("LoadFile = %+v, %v", got, err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSource_Run(t *testing.T) {
	source := NewSource([]Navigation{
		{Destination: "1", URL: "https://shop.example/"},
		{Destination: "2", URL: "about:blank"},
	})
	events := make(chan entity.TabEvent, 8)
	if err := source.Run(context.Background(), events); err != nil {
		t.Fatal(err)
	}
	close(events)

	var kinds []entity.EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	want := []entity.EventKind{entity.EventUpdated, entity.EventReady, entity.EventUpdated, entity.EventReady}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, kinds[i], want[i])
		}
	}

	if u, err := source.CurrentURL(context.Background(), "2"); err != nil || u != "about:blank" {
		t.Errorf("CurrentURL = %q, %v", u, err)
	}
	if _, err := source.CurrentURL(context.Background(), "9"); err == nil {
		t.Error("expected error for unknown destination")
	}
}

func TestSource_RunCancelled(t *testing.T) {
	source := NewSource([]Navigation{{Destination: "1", URL: "https://shop.example/"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := source.Run(ctx, make(chan entity.TabEvent)); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestChannel_Deliver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deliveries.jsonl")
	writer, err := storage.NewResultWriter(path)
	if err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	channel := NewChannel(writer, clockwork.NewFakeClockAt(at))
	result := entity.ClassificationResult{IsMatch: true, Status: entity.StatusComplete}
	if err := channel.Deliver(context.Background(), "1", entity.NewStatusMessage(result)); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatal("no delivery written")
	}
	var got entity.Delivery
	if err := json.Unmarshal(scanner.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Destination != "1" || got.Message.Data != result || !got.DeliveredAt.Equal(at) {
		t.Errorf("delivery = %+v", got)
	}
}
