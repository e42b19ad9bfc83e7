package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRulesWithoutCatalogUsesDefaults(t *testing.T) {
	if catalog != nil {
		t.Skip("catalog already loaded by another test")
	}
	rules := ResolveRules("high")
	if rules.Ante != 10 || rules.MinBet != 10 {
		t.Fatalf("rules = %+v, want engine defaults", rules)
	}
}

func TestLoadTableCatalogAndResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.json")
	payload := `{
		"default_tier": "casual",
		"tiers": [
			{"id": "casual", "ante": 10, "min_bet": 10},
			{"id": "high", "ante": 100, "min_bet": 50}
		],
		"max_players": 6,
		"turn_seconds": 20,
		"decision_seconds": 25,
		"review_seconds": 2,
		"shistri_enabled": true,
		"shistri_min_gap": 6,
		"shistri_percent": 25,
		"shistri_min_chip": 5
	}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if err := LoadTableCatalog(path); err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	high := ResolveRules("high")
	if high.Ante != 100 || high.MinBet != 50 {
		t.Fatalf("high tier = %+v", high)
	}
	if high.MaxPlayers != 6 || high.TurnSeconds != 20 {
		t.Fatalf("table-wide settings not applied: %+v", high)
	}

	fallback := ResolveRules("nonexistent")
	if fallback.Ante != 10 {
		t.Fatalf("unknown tier should fall back to default, got %+v", fallback)
	}

	unset := ResolveRules("")
	if unset.Ante != 10 {
		t.Fatalf("empty tier should resolve the default, got %+v", unset)
	}
}
