package out

import (
	"os"
	"path/filepath"
	"testing"
)

const scenarioYAML = `plugin: ./bin/reference
config: |
  [auth]
  prompt = OTP:
sessions:
  - id: svc-1
    protocol: ssh
    gateway_user: alice
    client_ip: 1.2.3.4
    key_value_pairs:
      gu: alice
    answers:
      otp: "123456"
    expect:
      authenticate: ACCEPT
      authorize: ACCEPT
  - protocol: rdp
    gateway_user: bob
    client_ip: 5.6.7.8
    expect:
      authenticate: DENY
`

func writeScenario(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestYAMLScenarioStoreLoad(t *testing.T) {
	t.Parallel()

	scenario, err := NewYAMLScenarioStore().Load(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if scenario.Plugin != "./bin/reference" {
		t.Fatalf("plugin = %q", scenario.Plugin)
	}
	if scenario.Config == "" {
		t.Fatal("expected inline config text")
	}
	if len(scenario.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(scenario.Sessions))
	}
	first := scenario.Sessions[0]
	if first.ID != "svc-1" || first.Protocol != "ssh" || first.GatewayUser != "alice" {
		t.Fatalf("unexpected first session: %+v", first)
	}
	if first.Answers["otp"] != "123456" {
		t.Fatalf("answers = %v", first.Answers)
	}
	if first.Expect.Authenticate != "ACCEPT" || first.Expect.Authorize != "ACCEPT" {
		t.Fatalf("expect = %+v", first.Expect)
	}
	second := scenario.Sessions[1]
	if second.ID != "" || second.Expect.Authenticate != "DENY" || second.Expect.Authorize != "" {
		t.Fatalf("unexpected second session: %+v", second)
	}
}

func TestYAMLScenarioStoreAllowsMissingPlugin(t *testing.T) {
	t.Parallel()

	scenario, err := NewYAMLScenarioStore().Load(writeScenario(t, "sessions: []\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if scenario.Plugin != "" {
		t.Fatalf("expected empty plugin, got %q", scenario.Plugin)
	}
}

func TestYAMLScenarioStoreRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := NewYAMLScenarioStore().Load(writeScenario(t, "plugin: [\n"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}
