package presenter

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	tea "github.com/charmbracelet/bubbletea"
)

func TestDashboard_View(t *testing.T) {
	d := NewDashboard()
	if got := d.View(); got != "Initializing..." {
		t.Errorf("View before size = %q", got)
	}

	d.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	d.OnMetricsUpdate(&entity.Metrics{EventsReceived: 12, CacheHits: 3, CacheMisses: 1, Delivered: 4})
	d.AddResult("shop.example", entity.ClassificationResult{IsMatch: true, Status: entity.StatusComplete})
	d.AddResult("down.example", entity.ErrorResult())

	view := d.View()
	for _, want := range []string{"Storefront Detector", "Events Received:   12", "Hit Ratio:         75.0%", "shop.example", "down.example"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDashboard_RecentBounded(t *testing.T) {
	d := NewDashboard()
	for i := 0; i < maxRecent+10; i++ {
		d.AddResult(entity.Domain(fmt.Sprintf("d%d.example", i)), entity.ClassificationResult{Status: entity.StatusComplete})
	}
	if len(d.recent) != maxRecent {
		t.Errorf("recent = %d, want %d", len(d.recent), maxRecent)
	}
	if d.recent[0].domain != "d10.example" {
		t.Errorf("oldest kept = %s", d.recent[0].domain)
	}
}

func TestDashboard_Quit(t *testing.T) {
	d := NewDashboard()
	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestReplayProgress(t *testing.T) {
	p := NewReplayProgress(3, io.Discard)
	p.OnMetricsUpdate(&entity.Metrics{})
	p.AddResult("shop.example", entity.ClassificationResult{Status: entity.StatusComplete})
	p.Finish()
}
