package llm

import (
	"errors"
	"testing"

	contractx "github.com/grandhotel/aria/agent/contract"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{Provider: ProviderGemini, APIKey: "k", Model: "gemini-2.5-flash-lite"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing api key", Config{Provider: ProviderGemini, Model: "m"}},
		{"missing model", Config{Provider: ProviderGemini, APIKey: "k"}},
		{"unknown provider", Config{Provider: "anthropic", APIKey: "k", Model: "m"}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestSplitHistory(t *testing.T) {
	t.Parallel()

	system, contents := splitHistory([]contractx.Turn{
		{Role: contractx.RoleSystem, Text: "be brief"},
		{Role: contractx.RoleAssistant, Text: "hello"},
		{Role: contractx.RoleCaller, Text: "hi"},
	})

	if system != "be brief" {
		t.Fatalf("unexpected system instruction: %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != "model" {
		t.Fatalf("assistant turn must map to model role, got %s", contents[0].Role)
	}
	if contents[1].Role != "user" {
		t.Fatalf("caller turn must map to user role, got %s", contents[1].Role)
	}
}
