package out_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	aaout "gatekit/internal/modules/aa/adapter/out"
	"gatekit/internal/modules/aa/domain"
)

const referenceConfig = `
[reference]
otp = 123456
`

func TestGRPCHostIntegrationReferencePlugin(t *testing.T) {
	t.Setenv("SCB_PLUGIN_STATE_DIRECTORY", t.TempDir())
	t.Setenv("EPHEMERAL_PLUGIN_STATE_DIRECTORY", t.TempDir())

	binPath := buildReferencePlugin(t)
	host := aaout.NewGRPCHost()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	process, err := host.Launch(ctx, binPath)
	if err != nil {
		t.Fatalf("launch plugin: %v", err)
	}
	defer process.Close()

	if err := process.Configure(ctx, referenceConfig); err != nil {
		t.Fatalf("configure: %v", err)
	}

	connection := domain.ConnectionInfo{
		SessionID:       "svc-integration-1",
		Protocol:        "ssh",
		ClientIP:        "1.2.3.4",
		GatewayUsername: "alice",
		KeyValuePairs:   map[string]string{},
	}

	first, err := process.Authenticate(ctx, domain.AuthenticateInput{Connection: connection})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if first.Action != domain.ActionNeedInfo {
		t.Fatalf("first verdict = %s, want NEEDINFO", first.Action)
	}
	if first.Question == nil || first.Question.Key != "otp" {
		t.Fatalf("unexpected question: %+v", first.Question)
	}

	connection.KeyValuePairs["otp"] = "123456"
	second, err := process.Authenticate(ctx, domain.AuthenticateInput{
		Cookie:        first.Cookie,
		SessionCookie: first.SessionCookie,
		Connection:    connection,
	})
	if err != nil {
		t.Fatalf("authenticate with otp: %v", err)
	}
	if second.Action != domain.ActionAccept {
		t.Fatalf("second verdict = %s (%s), want ACCEPT", second.Action, second.Reason)
	}

	authorized, err := process.Authorize(ctx, domain.AuthorizeInput{
		Cookie:        second.Cookie,
		SessionCookie: second.SessionCookie,
		Connection:    connection,
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if authorized.Action != domain.ActionAccept {
		t.Fatalf("authorize verdict = %s, want ACCEPT", authorized.Action)
	}

	if _, err := process.SessionEnded(ctx, domain.SessionEndedInput{
		SessionID:     connection.SessionID,
		Cookie:        authorized.Cookie,
		SessionCookie: authorized.SessionCookie,
	}); err != nil {
		t.Fatalf("session_ended: %v", err)
	}
}

func TestGRPCHostHooksBeforeConfigureFail(t *testing.T) {
	binPath := buildReferencePlugin(t)
	host := aaout.NewGRPCHost()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	process, err := host.Launch(ctx, binPath)
	if err != nil {
		t.Fatalf("launch plugin: %v", err)
	}
	defer process.Close()

	_, err = process.Authenticate(ctx, domain.AuthenticateInput{
		Connection: domain.ConnectionInfo{SessionID: "svc-1", Protocol: "ssh", GatewayUsername: "alice"},
	})
	if err == nil {
		t.Fatal("expected error for hook before Configure")
	}
}

func buildReferencePlugin(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "reference-plugin")
	cmd := exec.Command("go", "build", "-o", binPath, "./plugins/reference")
	cmd.Dir = repositoryRoot(t)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build reference plugin: %v\n%s", err, string(out))
	}
	return binPath
}

func repositoryRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "../../../../.."))
}
