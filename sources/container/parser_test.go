package container

import (
	"log/slog"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParser_SimpleHostname(t *testing.T) {
	parser := NewParser("woven", WithParserLogger(testLogger()))

	labels := map[string]string{
		"woven.hostname": "app.example.com",
	}

	extractions := parser.ExtractHostnames(labels)

	if len(extractions) != 1 {
		t.Fatalf("expected 1 extraction, got %d", len(extractions))
	}
	e := extractions[0]
	if e.Hostname != "app.example.com" {
		t.Errorf("hostname = %q, want %q", e.Hostname, "app.example.com")
	}
	if e.HasHints() {
		t.Error("expected no hints for simple hostname")
	}
}

func TestParser_CustomPrefix(t *testing.T) {
	parser := NewParser("mesh", WithParserLogger(testLogger()))

	labels := map[string]string{
		"woven.hostname": "app.example.com", // wrong prefix, should be ignored
		"mesh.hostname":  "svc.example.com",
	}

	extractions := parser.ExtractHostnames(labels)
	if len(extractions) != 1 || extractions[0].Hostname != "svc.example.com" {
		t.Fatalf("expected only the mesh-prefixed hostname, got %+v", extractions)
	}
}

func TestParser_NamedRecord_ProxiedHint(t *testing.T) {
	parser := NewParser("woven", WithParserLogger(testLogger()))

	labels := map[string]string{
		"woven.records.myapp.hostname": "app.example.com",
		"woven.records.myapp.type":     "A",
		"woven.records.myapp.proxied":  "true",
	}

	extractions := parser.ExtractHostnames(labels)
	if len(extractions) != 1 {
		t.Fatalf("expected 1 extraction, got %d", len(extractions))
	}
	e := extractions[0]
	if e.Proxied == nil || !*e.Proxied {
		t.Errorf("expected Proxied=true, got %v", e.Proxied)
	}
}

func TestParser_NamedRecord_CAAHints(t *testing.T) {
	parser := NewParser("woven", WithParserLogger(testLogger()))

	labels := map[string]string{
		"woven.records.caa.hostname": "example.com",
		"woven.records.caa.type":     "CAA",
		"woven.records.caa.target":   "letsencrypt.org",
		"woven.records.caa.tag":      "issue",
		"woven.records.caa.flags":    "128",
	}

	extractions := parser.ExtractHostnames(labels)
	if len(extractions) != 1 {
		t.Fatalf("expected 1 extraction, got %d", len(extractions))
	}
	e := extractions[0]
	if e.CAA == nil {
		t.Fatal("expected CAA data to be set")
	}
	if e.CAA.Tag != "issue" || e.CAA.Flags != 128 {
		t.Errorf("CAA = %+v, want tag=issue flags=128", e.CAA)
	}
}

func TestParser_NamedRecord_DisabledSkipped(t *testing.T) {
	parser := NewParser("woven", WithParserLogger(testLogger()))

	labels := map[string]string{
		"woven.records.myapp.hostname": "app.example.com",
		"woven.records.myapp.enabled":  "false",
	}

	extractions := parser.ExtractHostnames(labels)
	if len(extractions) != 0 {
		t.Errorf("expected 0 extractions for disabled record, got %d", len(extractions))
	}
}

func TestParser_GloballyDisabled(t *testing.T) {
	parser := NewParser("woven", WithParserLogger(testLogger()))

	labels := map[string]string{
		"woven.hostname": "app.example.com",
		"woven.enabled":  "false",
	}

	extractions := parser.ExtractHostnames(labels)
	if len(extractions) != 0 {
		t.Errorf("expected 0 extractions when globally disabled, got %d", len(extractions))
	}
}

func TestParser_SRVHints(t *testing.T) {
	parser := NewParser("woven", WithParserLogger(testLogger()))

	labels := map[string]string{
		"woven.records.mc.hostname": "_minecraft._tcp.mc.example.com",
		"woven.records.mc.type":     "SRV",
		"woven.records.mc.target":   "mc-server.example.com",
		"woven.records.mc.port":     "25565",
		"woven.records.mc.priority": "0",
		"woven.records.mc.weight":   "5",
	}

	extractions := parser.ExtractHostnames(labels)
	if len(extractions) != 1 {
		t.Fatalf("expected 1 extraction, got %d", len(extractions))
	}
	e := extractions[0]
	if e.SRV == nil {
		t.Fatal("expected SRV data")
	}
	if e.SRV.Port != 25565 || e.SRV.Weight != 5 {
		t.Errorf("SRV = %+v", e.SRV)
	}
}
