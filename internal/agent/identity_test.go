package agent

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := []string{"agent-1", "builder@host-3", "a", "dev.team_7", "A9"}
	for _, id := range valid {
		if err := Validate(id); err != nil {
			t.Errorf("Expected %q valid: %v", id, err)
		}
	}

	invalid := []string{"", "-leading-dash", "has space", "semi;colon", strings.Repeat("x", 65)}
	for _, id := range invalid {
		if err := Validate(id); err == nil {
			t.Errorf("Expected %q rejected", id)
		}
	}
}

func TestResolveIDOverride(t *testing.T) {
	t.Setenv(EnvAgentID, "env-agent")

	id, err := ResolveID("flag-agent")
	if err != nil {
		t.Fatalf("ResolveID failed: %v", err)
	}
	if id != "flag-agent" {
		t.Errorf("Expected override to win, got %s", id)
	}
}

func TestResolveIDEnv(t *testing.T) {
	t.Setenv(EnvAgentID, "env-agent")

	id, err := ResolveID("")
	if err != nil {
		t.Fatalf("ResolveID failed: %v", err)
	}
	if id != "env-agent" {
		t.Errorf("Expected env identity, got %s", id)
	}
}

func TestResolveIDFallback(t *testing.T) {
	t.Setenv(EnvAgentID, "")

	id, err := ResolveID("")
	if err != nil {
		t.Fatalf("ResolveID failed: %v", err)
	}
	if !strings.Contains(id, "@") {
		t.Errorf("Expected user@hostname form, got %s", id)
	}
}

func TestResolveIDRejectsBadOverride(t *testing.T) {
	if _, err := ResolveID("not a valid id"); err == nil {
		t.Error("Expected error for invalid override")
	}
}
