// Package vault is the staking layer the command line tool calls. It pairs a
// ledger with the bank that holds the accounts' tokens and reward value, so
// every stake, unstake and reward moves real balances in and out of the pool
// account.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/stakeledger-go/bank"
	"github.com/bitfsorg/stakeledger-go/config"
	"github.com/bitfsorg/stakeledger-go/ledger"
)

// ErrLocked indicates another process holds the data directory.
var ErrLocked = errors.New("vault: data directory is locked")

// File names inside the data directory.
const (
	lockFile    = "vault.lock"
	ledgerFile  = "ledger.db"
	balanceFile = "balances.json"
)

// Options are the optional collaborators of a Vault.
type Options struct {
	Logger   logrus.FieldLogger
	Observer ledger.Observer
	Events   ledger.EventSink
	// Wait blocks until the data directory lock is free instead of failing.
	Wait bool
}

// Vault combines the share ledger with the external balances.
type Vault struct {
	Ledger  *ledger.Ledger
	Bank    *bank.Bank
	Pool    common.Address
	DataDir string // empty for an in-memory vault

	mu    sync.Mutex
	store *ledger.BoltStore
	lock  *os.File
	log   logrus.FieldLogger
}

// Account is a combined view of one address.
type Account struct {
	Address   common.Address
	Tokens    *uint256.Int // unstaked tokens in the bank
	Value     *uint256.Int // reward currency in the bank
	Shares    *uint256.Int
	Staked    *uint256.Int // tokens the shares redeem for now
	Claimable *uint256.Int
	Claimed   *uint256.Int
}

// Open opens the vault in cfg.DataDir, taking an exclusive lock on the
// directory until Close.
func Open(cfg config.Config, opts Options) (*Vault, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("vault: create data directory: %w", err)
	}

	lockPath := filepath.Join(cfg.DataDir, lockFile)
	lock := tryLock
	if opts.Wait {
		lock = acquireLock
	}
	fl, err := lock(lockPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocked, err)
	}

	v := &Vault{Pool: cfg.Pool(), DataDir: cfg.DataDir, lock: fl, log: loggerOf(opts)}

	var store ledger.Store
	switch cfg.Backend {
	case config.BackendMemory:
		v.Bank = bank.New()
		store = ledger.NewMemStore()
	default:
		if v.Bank, err = bank.Load(filepath.Join(cfg.DataDir, balanceFile)); err != nil {
			releaseLock(fl)
			return nil, err
		}
		if v.store, err = ledger.OpenBoltStore(filepath.Join(cfg.DataDir, ledgerFile)); err != nil {
			releaseLock(fl)
			return nil, fmt.Errorf("vault: open ledger store: %w", err)
		}
		store = v.store
	}
	for _, addr := range cfg.Refusing() {
		v.Bank.SetRefusing(addr, true)
	}

	if v.Ledger, err = ledger.Open(store, v.ledgerOptions(opts)...); err != nil {
		_ = v.Close()
		return nil, fmt.Errorf("vault: open ledger: %w", err)
	}
	v.log.WithFields(logrus.Fields{
		"datadir": cfg.DataDir,
		"backend": cfg.Backend,
		"pool":    v.Pool.Hex(),
	}).Info("vault: opened")
	return v, nil
}

// NewMemory creates an unpersisted vault around pool.
func NewMemory(pool common.Address, opts Options) *Vault {
	v := &Vault{Bank: bank.New(), Pool: pool, log: loggerOf(opts)}
	v.Ledger = ledger.New(v.ledgerOptions(opts)...)
	return v
}

func loggerOf(opts Options) logrus.FieldLogger {
	if opts.Logger != nil {
		return opts.Logger
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}

func (v *Vault) ledgerOptions(opts Options) []ledger.Option {
	return []ledger.Option{
		ledger.WithPaymentSink(v.Bank.Sink(v.Pool)),
		ledger.WithEventSink(opts.Events),
		ledger.WithObserver(opts.Observer),
		ledger.WithLogger(v.log),
	}
}

// Close persists the balances and releases the store and the lock.
func (v *Vault) Close() error {
	var errs []error
	if err := v.Bank.Save(); err != nil {
		errs = append(errs, fmt.Errorf("vault: save balances on close: %w", err))
	}
	if v.store != nil {
		if err := v.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("vault: close ledger store: %w", err))
		}
		v.store = nil
	}
	releaseLock(v.lock)
	v.lock = nil
	return errors.Join(errs...)
}

// withBalances runs fn and persists the balances when it succeeds.
func (v *Vault) withBalances(fn func() error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	return v.Bank.Save()
}

// refund undoes an inbound move after the ledger rejected the operation.
func (v *Vault) refund(asset bank.Asset, to common.Address, amount *uint256.Int) {
	if err := v.Bank.Return(asset, v.Pool, to, amount); err != nil {
		v.log.WithFields(logrus.Fields{
			"asset":  asset.String(),
			"to":     to.Hex(),
			"amount": amount.Dec(),
		}).WithError(err).Error("vault: refund failed")
	}
}

// Fund credits amount of asset to addr out of thin air.
func (v *Vault) Fund(asset bank.Asset, addr common.Address, amount *uint256.Int) error {
	return v.withBalances(func() error {
		return v.Bank.Credit(asset, addr, amount)
	})
}

// Stake moves amount tokens from holder into the pool and mints shares.
func (v *Vault) Stake(ctx context.Context, holder common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, ledger.ErrZeroAmount
	}
	var shares *uint256.Int
	err := v.withBalances(func() error {
		if err := v.Bank.Move(bank.Tokens, holder, v.Pool, amount); err != nil {
			return err
		}
		var err error
		if shares, err = v.Ledger.Deposit(ctx, holder, amount); err != nil {
			v.refund(bank.Tokens, holder, amount)
			return err
		}
		return nil
	})
	return shares, err
}

// Unstake burns shares and returns their tokens to holder, paying the
// claimable reward as well when claim is set.
func (v *Vault) Unstake(ctx context.Context, holder common.Address, shares *uint256.Int, claim bool) (principal, rewards *uint256.Int, err error) {
	err = v.withBalances(func() error {
		var err error
		principal, rewards, err = v.Ledger.Withdraw(ctx, holder, shares, claim)
		return err
	})
	return principal, rewards, err
}

// Transfer moves shares between holders; accrued rewards stay with from.
func (v *Vault) Transfer(ctx context.Context, from, to common.Address, shares *uint256.Int) error {
	return v.withBalances(func() error {
		return v.Ledger.Transfer(ctx, from, to, shares)
	})
}

// SendRewards moves amount of reward value from sender into the pool and
// distributes it over the current shares.
func (v *Vault) SendRewards(ctx context.Context, from common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	return v.withBalances(func() error {
		if err := v.Bank.Move(bank.Value, from, v.Pool, amount); err != nil {
			return err
		}
		if err := v.Ledger.ReceiveReward(ctx, from, amount); err != nil {
			v.refund(bank.Value, from, amount)
			return err
		}
		return nil
	})
}

// SendYield moves amount tokens from sender into the pool without minting,
// raising the value of every share.
func (v *Vault) SendYield(ctx context.Context, from common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	return v.withBalances(func() error {
		if err := v.Bank.Move(bank.Tokens, from, v.Pool, amount); err != nil {
			return err
		}
		if err := v.Ledger.AddYield(ctx, from, amount); err != nil {
			v.refund(bank.Tokens, from, amount)
			return err
		}
		return nil
	})
}

// Claim pays holder's claimable reward to recipient.
func (v *Vault) Claim(ctx context.Context, holder, recipient common.Address) (*uint256.Int, error) {
	var paid *uint256.Int
	err := v.withBalances(func() error {
		var err error
		paid, err = v.Ledger.Claim(ctx, holder, recipient)
		return err
	})
	return paid, err
}

// Account returns the combined balances of addr.
func (v *Vault) Account(addr common.Address) *Account {
	return &Account{
		Address:   addr,
		Tokens:    v.Bank.Balance(bank.Tokens, addr),
		Value:     v.Bank.Balance(bank.Value, addr),
		Shares:    v.Ledger.SharesOf(addr),
		Staked:    v.Ledger.TokenBalance(addr),
		Claimable: v.Ledger.ClaimableRewardsOf(addr),
		Claimed:   v.Ledger.ClaimedRewardsOf(addr),
	}
}

// Audit checks the ledger invariants and that the pool account covers the
// principal and the unclaimed rewards it owes.
func (v *Vault) Audit() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.Ledger.Audit(); err != nil {
		return err
	}
	st := v.Ledger.Snapshot()
	tokens := v.Bank.Balance(bank.Tokens, v.Pool)
	if tokens.Lt(st.TotalPooledValue) {
		return fmt.Errorf("%w: pool holds %s tokens, owes %s", ledger.ErrInvariant, tokens.Dec(), st.TotalPooledValue.Dec())
	}
	owed := new(uint256.Int).Sub(st.TotalRewards, st.TotalClaimed)
	value := v.Bank.Balance(bank.Value, v.Pool)
	if value.Lt(owed) {
		return fmt.Errorf("%w: pool holds %s value, owes %s", ledger.ErrInvariant, value.Dec(), owed.Dec())
	}
	return nil
}
