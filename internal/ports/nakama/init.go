package nakama

import (
	"context"
	"database/sql"

	"github.com/Nektarios-I/Kouppi-sub000/internal/registry"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs, hooks and the match handler for the Nakama runtime.
// One registry instance is shared by all of them.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	reg := registry.New()

	if err := RegisterRPCs(initializer, reg); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameKouppi, NewMatch(reg)); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	logger.Info("Kouppi Go module loaded.")
	return nil
}
