// Package payment verifies that placement fees were actually paid on the
// Solana ledger before any tree record is written.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/soltrees/api/internal/logging"
	"github.com/soltrees/api/internal/solana"
)

// LamportsPerSol is the fixed-point scale of the ledger's smallest unit.
const LamportsPerSol = 1_000_000_000

// Verifier reports whether a sender recently paid at least the given amount
// (in SOL) to the treasury wallet. Implementations must be fail-closed: any
// uncertainty about the ledger state yields false, never an invented true.
type Verifier interface {
	WasPaid(ctx context.Context, senderAddress string, minimumAmount decimal.Decimal) (bool, error)
}

// SolanaVerifier checks the treasury wallet's recent transaction history
// over JSON-RPC. It holds no state and performs no writes.
type SolanaVerifier struct {
	rpc            solana.Client
	treasury       string
	lookbackWindow time.Duration
	signatureLimit int
	logger         *logging.Logger
	now            func() time.Time
}

// Config configures a SolanaVerifier.
type Config struct {
	TreasuryAddress string
	LookbackWindow  time.Duration
	SignatureLimit  int
}

// NewSolanaVerifier creates a verifier over the given RPC client.
func NewSolanaVerifier(rpc solana.Client, cfg *Config, logger *logging.Logger) (*SolanaVerifier, error) {
	if err := ValidateAddress(cfg.TreasuryAddress); err != nil {
		return nil, fmt.Errorf("treasury address: %w", err)
	}

	limit := cfg.SignatureLimit
	if limit <= 0 {
		limit = 100
	}
	window := cfg.LookbackWindow
	if window <= 0 {
		window = 10 * time.Minute
	}

	return &SolanaVerifier{
		rpc:            rpc,
		treasury:       cfg.TreasuryAddress,
		lookbackWindow: window,
		signatureLimit: limit,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// ValidateAddress checks that the address is a base58-encoded 32-byte
// public key.
func ValidateAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("not base58: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("decoded length %d, want 32", len(raw))
	}
	return nil
}

// SolToLamports converts a SOL amount to lamports exactly. Amounts with
// sub-lamport precision are rounded up so the requirement never shrinks.
func SolToLamports(amount decimal.Decimal) uint64 {
	lamports := amount.Mul(decimal.NewFromInt(LamportsPerSol))
	return uint64(lamports.Ceil().IntPart())
}

// WasPaid scans the treasury's recent inbound transfers for one sent by
// senderAddress within the lookback window carrying at least minimumAmount.
// Ledger errors and timeouts degrade to false. Only malformed input is
// surfaced as an error.
func (v *SolanaVerifier) WasPaid(ctx context.Context, senderAddress string, minimumAmount decimal.Decimal) (bool, error) {
	if !minimumAmount.IsPositive() {
		return false, fmt.Errorf("minimum amount must be positive, got %s", minimumAmount)
	}
	if err := ValidateAddress(senderAddress); err != nil {
		return false, fmt.Errorf("sender address %q: %w", senderAddress, err)
	}

	requiredLamports := SolToLamports(minimumAmount)
	cutoff := v.now().Add(-v.lookbackWindow).Unix()

	sigs, err := v.rpc.GetSignaturesForAddress(ctx, v.treasury, &solana.SignaturesOpts{Limit: v.signatureLimit})
	if err != nil {
		v.logger.WithError(err).Warn("ledger signature lookup failed, treating payment as not found")
		return false, nil
	}

	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}
		if sig.BlockTime == nil {
			continue
		}
		// Signatures arrive newest first; everything past the cutoff is
		// outside the lookback window.
		if *sig.BlockTime < cutoff {
			break
		}

		tx, err := v.rpc.GetTransaction(ctx, sig.Signature)
		if err != nil {
			v.logger.WithError(err).WithField("signature", sig.Signature).
				Warn("ledger transaction fetch failed, skipping signature")
			continue
		}
		if tx == nil {
			continue
		}

		if v.qualifies(tx, senderAddress, requiredLamports) {
			return true, nil
		}
	}

	return false, nil
}

// qualifies reports whether the transaction is a transfer of at least
// requiredLamports from sender into the treasury.
func (v *SolanaVerifier) qualifies(tx *solana.Transaction, sender string, requiredLamports uint64) bool {
	if tx.Meta == nil || tx.Message == nil {
		return false
	}
	if tx.Meta.Err != nil {
		return false
	}
	if len(tx.Message.AccountKeys) == 0 {
		return false
	}
	// The fee payer is the first account key; it must be the claimed sender.
	if tx.Message.AccountKeys[0] != sender {
		return false
	}

	for i, key := range tx.Message.AccountKeys {
		if key != v.treasury {
			continue
		}
		if i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			return false
		}
		pre := tx.Meta.PreBalances[i]
		post := tx.Meta.PostBalances[i]
		return post > pre && post-pre >= requiredLamports
	}

	return false
}
