package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Nektarios-I/Kouppi-sub000/internal/domain"
)

// StakeTier is one entry of the table catalog. The coordinator resolves a
// tier into plain numeric TableRules; the engine never sees tier ids.
type StakeTier struct {
	ID     string `json:"id"`
	Ante   int64  `json:"ante"`
	MinBet int64  `json:"min_bet"`
}

type TableCatalog struct {
	DefaultTier     string      `json:"default_tier"`
	Tiers           []StakeTier `json:"tiers"`
	MaxPlayers      int         `json:"max_players"`
	TurnSeconds     int         `json:"turn_seconds"`
	DecisionSeconds int         `json:"decision_seconds"`
	ReviewSeconds   int         `json:"review_seconds"`
	ShistriEnabled  bool        `json:"shistri_enabled"`
	ShistriMinGap   int         `json:"shistri_min_gap"`
	ShistriPercent  int         `json:"shistri_percent"`
	ShistriMinChip  int64       `json:"shistri_min_chip"`
	// BotAutoFillDelaySeconds configures how long a solo human waits before bots are seated.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
}

var (
	catalog  *TableCatalog
	loadOnce sync.Once
	loadErr  error
)

// LoadTableCatalog loads the catalog from the given path.
func LoadTableCatalog(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read table catalog: %w", err)
			return
		}

		var c TableCatalog
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal table catalog: %w", err)
			return
		}
		catalog = &c
	})
	return loadErr
}

// GetTableCatalog returns the global catalog, or nil when not loaded.
func GetTableCatalog() *TableCatalog {
	return catalog
}

// ResolveRules returns the table rules for a tier id, falling back to the
// default tier and finally to the engine defaults when nothing is loaded.
func ResolveRules(tierID string) domain.TableRules {
	rules := domain.DefaultRules()
	if catalog == nil {
		return rules
	}

	if catalog.MaxPlayers > 0 {
		rules.MaxPlayers = catalog.MaxPlayers
	}
	if catalog.TurnSeconds > 0 {
		rules.TurnSeconds = catalog.TurnSeconds
	}
	if catalog.DecisionSeconds > 0 {
		rules.DecisionSeconds = catalog.DecisionSeconds
	}
	if catalog.ReviewSeconds > 0 {
		rules.ReviewSeconds = catalog.ReviewSeconds
	}
	rules.ShistriEnabled = catalog.ShistriEnabled
	if catalog.ShistriMinGap > 0 {
		rules.ShistriMinGap = catalog.ShistriMinGap
	}
	if catalog.ShistriPercent > 0 {
		rules.ShistriPercent = catalog.ShistriPercent
	}
	if catalog.ShistriMinChip > 0 {
		rules.ShistriMinChip = catalog.ShistriMinChip
	}

	target := tierID
	if target == "" {
		target = catalog.DefaultTier
	}
	for _, tier := range catalog.Tiers {
		if tier.ID == target {
			rules.Ante = tier.Ante
			rules.MinBet = tier.MinBet
			return rules
		}
	}
	for _, tier := range catalog.Tiers {
		if tier.ID == catalog.DefaultTier {
			rules.Ante = tier.Ante
			rules.MinBet = tier.MinBet
			return rules
		}
	}
	return rules
}
