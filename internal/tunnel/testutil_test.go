package tunnel

import (
	"context"
	"log/slog"
	"os"

	"gitlab.com/wovendns/woven/internal/docker"
	providertunnel "gitlab.com/wovendns/woven/providers/tunnel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeLister struct {
	workloads []docker.Workload
}

func (f *fakeLister) ListWorkloads(_ context.Context) ([]docker.Workload, error) {
	return f.workloads, nil
}

func (f *fakeLister) add(name string, labels map[string]string) {
	f.workloads = append(f.workloads, docker.Workload{ID: "id-" + name, Name: name, Labels: labels, Type: docker.WorkloadTypeContainer})
}

// fakeAdapter is an in-memory providertunnel.Adapter for tests.
type fakeAdapter struct {
	name        string
	tunnelID    string
	ingress     []providertunnel.IngressRule
	replaceCall int
	replaceErr  error
}

func (a *fakeAdapter) Name() string     { return a.name }
func (a *fakeAdapter) TunnelID() string { return a.tunnelID }

func (a *fakeAdapter) Get(_ context.Context) (*providertunnel.Configuration, error) {
	return &providertunnel.Configuration{TunnelID: a.tunnelID, Ingress: a.ingress}, nil
}

func (a *fakeAdapter) Replace(_ context.Context, ingress []providertunnel.IngressRule) error {
	a.replaceCall++
	if a.replaceErr != nil {
		return a.replaceErr
	}
	a.ingress = ingress
	return nil
}

func (a *fakeAdapter) Ping(_ context.Context) error { return nil }

var _ providertunnel.Adapter = (*fakeAdapter)(nil)

func ingressRules(hostname, path, service string) []providertunnel.IngressRule {
	return []providertunnel.IngressRule{{Hostname: hostname, Path: path, Service: service}}
}
