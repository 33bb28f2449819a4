package widget_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dudeperfectdwag/widgetcraft/pkg/widget"
)

func TestExportImportRoundTrip(t *testing.T) {
	d := widget.New("greeting", `return { type: 'text', value: 'hi' };`)
	d.Refresh = widget.RefreshInterval(time.Minute)
	d.Notes = "demo widget"

	data, err := widget.Export(d)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Fatal("export does not end with a newline")
	}

	got, err := widget.Import(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got.ID != d.ID || got.Name != d.Name || got.Script != d.Script {
		t.Fatalf("round trip = %+v, want %+v", got, d)
	}
	if got.Refresh != d.Refresh {
		t.Fatalf("Refresh = %s, want %s", got.Refresh, d.Refresh)
	}
}

func TestImportMinimalFile(t *testing.T) {
	got, err := widget.Import([]byte(`{"name": "mini", "script": "return { type: 'text', value: 'x' };"}`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got.Name != "mini" {
		t.Fatalf("Name = %q", got.Name)
	}
	if got.ID != "" {
		t.Fatalf("ID = %q, want empty before Put", got.ID)
	}
}

func TestImportRepairsSloppyJSON(t *testing.T) {
	// Trailing comma and single quotes, the classic hand-edit casualties.
	sloppy := `{
  'name': 'sloppy',
  'script': 'return { type: \'text\', value: \'x\' };',
}`
	got, err := widget.Import([]byte(sloppy))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got.Name != "sloppy" {
		t.Fatalf("Name = %q", got.Name)
	}
}

func TestImportRefreshForms(t *testing.T) {
	t.Run("duration string", func(t *testing.T) {
		got, err := widget.Import([]byte(`{"name": "w", "script": "x = 1;", "refresh": "30s"}`))
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if got.Refresh.Duration() != 30*time.Second {
			t.Fatalf("Refresh = %s", got.Refresh)
		}
	})
	t.Run("nanosecond count", func(t *testing.T) {
		got, err := widget.Import([]byte(`{"name": "w", "script": "x = 1;", "refresh": 5000000000}`))
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if got.Refresh.Duration() != 5*time.Second {
			t.Fatalf("Refresh = %s", got.Refresh)
		}
	})
}

func TestImportRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"script wrong type", `{"name": "w", "script": 42}`},
		{"name wrong type", `{"name": [], "script": "x"}`},
		{"missing script", `{"name": "w"}`},
		{"missing name", `{"script": "x"}`},
		{"not an object", `"just a string"`},
		{"hopeless garbage", "\x00\x01\x02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := widget.Import([]byte(tt.data)); err == nil {
				t.Fatalf("Import accepted %q", tt.data)
			}
		})
	}
}

func TestRefreshIntervalJSON(t *testing.T) {
	d := widget.New("w", "x")
	d.Refresh = widget.RefreshInterval(90 * time.Second)
	data, err := widget.Export(d)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(string(data), `"refresh": "1m30s"`) {
		t.Fatalf("export = %s", data)
	}
}
