// Package bank keeps the external account balances a staking pool moves value
// between: the principal token and the reward currency. A Bank doubles as the
// payment sink of a ledger.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bitfsorg/stakeledger-go/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrInsufficientFunds indicates the source account cannot cover a debit.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")

	// ErrUnknownAsset indicates an asset name or value that is not recognised.
	ErrUnknownAsset = errors.New("bank: unknown asset")

	// ErrOverflow indicates a balance would exceed 2^256-1.
	ErrOverflow = errors.New("bank: balance overflow")

	// ErrInvalidAmount indicates a nil or zero amount.
	ErrInvalidAmount = errors.New("bank: invalid amount")
)

// Asset selects which balance an operation touches.
type Asset uint8

const (
	// Tokens is the principal token staked into the pool.
	Tokens Asset = iota + 1
	// Value is the reward currency.
	Value
)

func (a Asset) String() string {
	switch a {
	case Tokens:
		return "tokens"
	case Value:
		return "value"
	default:
		return fmt.Sprintf("Asset(%d)", uint8(a))
	}
}

// ParseAsset parses "tokens" or "value".
func ParseAsset(s string) (Asset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tokens", "token":
		return Tokens, nil
	case "value", "eth":
		return Value, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAsset, s)
	}
}

// assetFor maps a ledger payment to the asset it moves.
func assetFor(kind ledger.PaymentKind) Asset {
	if kind == ledger.PaymentPrincipal {
		return Tokens
	}
	return Value
}

// Bank holds per-account balances of both assets.
// Persisted as JSON when opened with Load.
type Bank struct {
	mu       sync.Mutex
	balances map[Asset]map[common.Address]*uint256.Int
	refusing map[common.Address]bool
	path     string
}

// account is the on-disk form of one account.
type account struct {
	Tokens string `json:"tokens,omitempty"` // decimal
	Value  string `json:"value,omitempty"`  // decimal
}

// file is the on-disk form of a Bank.
type file struct {
	Accounts map[common.Address]*account `json:"accounts"`
	Refusing []common.Address            `json:"refusing,omitempty"`
}

// New creates an empty in-memory bank. Save is a no-op on it.
func New() *Bank {
	return &Bank{
		balances: map[Asset]map[common.Address]*uint256.Int{
			Tokens: make(map[common.Address]*uint256.Int),
			Value:  make(map[common.Address]*uint256.Int),
		},
		refusing: make(map[common.Address]bool),
	}
}

// Load reads a bank from path. Returns an empty bank bound to path if the
// file does not exist.
func Load(path string) (*Bank, error) {
	b := New()
	b.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("bank: read balances: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("bank: parse balances: %w", err)
	}
	for addr, acct := range f.Accounts {
		if acct == nil {
			continue
		}
		for asset, s := range map[Asset]string{Tokens: acct.Tokens, Value: acct.Value} {
			if s == "" {
				continue
			}
			v, err := uint256.FromDecimal(s)
			if err != nil {
				return nil, fmt.Errorf("bank: parse %s balance of %s: %w", asset, addr.Hex(), err)
			}
			if !v.IsZero() {
				b.balances[asset][addr] = v
			}
		}
	}
	for _, addr := range f.Refusing {
		b.refusing[addr] = true
	}
	return b, nil
}

// Path returns the file the bank persists to, or "" for an in-memory bank.
func (b *Bank) Path() string { return b.path }

// Save persists the balances to disk.
func (b *Bank) Save() error {
	if b.path == "" {
		return nil
	}
	b.mu.Lock()
	f := file{Accounts: make(map[common.Address]*account)}
	for asset, m := range b.balances {
		for addr, v := range m {
			acct := f.Accounts[addr]
			if acct == nil {
				acct = &account{}
				f.Accounts[addr] = acct
			}
			if asset == Tokens {
				acct.Tokens = v.Dec()
			} else {
				acct.Value = v.Dec()
			}
		}
	}
	for addr := range b.refusing {
		f.Refusing = append(f.Refusing, addr)
	}
	b.mu.Unlock()

	sortAddrs(f.Refusing)
	data, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return fmt.Errorf("bank: marshal balances: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return fmt.Errorf("bank: create directory: %w", err)
	}
	return os.WriteFile(b.path, data, 0600)
}

// Balance returns a copy of addr's balance of asset.
func (b *Bank) Balance(asset Asset, addr common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.balances[asset]
	if !ok {
		return new(uint256.Int)
	}
	if v, ok := m[addr]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

// Accounts returns every address holding a balance or marked refusing, sorted.
func (b *Bank) Accounts() []common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[common.Address]bool)
	for _, m := range b.balances {
		for addr := range m {
			seen[addr] = true
		}
	}
	for addr := range b.refusing {
		seen[addr] = true
	}
	out := make([]common.Address, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sortAddrs(out)
	return out
}

// SetRefusing marks addr as refusing (or accepting) incoming transfers.
func (b *Bank) SetRefusing(addr common.Address, refuse bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if refuse {
		b.refusing[addr] = true
	} else {
		delete(b.refusing, addr)
	}
}

// Refuses reports whether addr refuses incoming transfers.
func (b *Bank) Refuses(addr common.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refusing[addr]
}

// Credit mints amount of asset to addr. Funding ignores refusal.
func (b *Bank) Credit(asset Asset, addr common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.balances[asset]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAsset, uint8(asset))
	}
	cur := m[addr]
	if cur == nil {
		cur = new(uint256.Int)
	}
	sum, overflow := new(uint256.Int).AddOverflow(cur, amount)
	if overflow {
		return fmt.Errorf("%w: %s of %s", ErrOverflow, asset, addr.Hex())
	}
	m[addr] = sum
	return nil
}

// Move transfers amount of asset from one account to another.
func (b *Bank) Move(asset Asset, from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.balances[asset]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAsset, uint8(asset))
	}
	if from != to && b.refusing[to] {
		return fmt.Errorf("%w: %s", ledger.ErrRecipientRefused, to.Hex())
	}
	return b.apply(asset, from, []common.Address{to}, []*uint256.Int{amount})
}

// Return moves amount back from one account to another, ignoring refusal.
// It reverses a Move whose purpose failed downstream.
func (b *Bank) Return(asset Asset, from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.balances[asset]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAsset, uint8(asset))
	}
	return b.apply(asset, from, []common.Address{to}, []*uint256.Int{amount})
}

// apply debits the sum of amounts from src and credits each recipient.
// Nothing changes on error. Caller holds b.mu.
func (b *Bank) apply(asset Asset, src common.Address, to []common.Address, amounts []*uint256.Int) error {
	m := b.balances[asset]
	staged := make(map[common.Address]*uint256.Int)
	get := func(addr common.Address) *uint256.Int {
		if v, ok := staged[addr]; ok {
			return v
		}
		if v, ok := m[addr]; ok {
			return v.Clone()
		}
		return new(uint256.Int)
	}

	for i, addr := range to {
		from := get(src)
		if from.Lt(amounts[i]) {
			return fmt.Errorf("%w: %s has %s %s, needs %s", ErrInsufficientFunds, src.Hex(), from.Dec(), asset, amounts[i].Dec())
		}
		staged[src] = new(uint256.Int).Sub(from, amounts[i])
		dst, overflow := new(uint256.Int).AddOverflow(get(addr), amounts[i])
		if overflow {
			return fmt.Errorf("%w: %s of %s", ErrOverflow, asset, addr.Hex())
		}
		staged[addr] = dst
	}
	for addr, v := range staged {
		if v.IsZero() {
			delete(m, addr)
		} else {
			m[addr] = v
		}
	}
	return nil
}

// Sink returns a payment sink that pays out of the custody account.
func (b *Bank) Sink(custody common.Address) ledger.PaymentSink {
	return &sink{bank: b, custody: custody}
}

type sink struct {
	bank    *Bank
	custody common.Address
}

// Pay executes the whole batch or none of it. A refusing recipient fails the
// batch with a *ledger.PaymentError naming the refused payment.
func (s *sink) Pay(ctx context.Context, payments []ledger.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := s.bank
	b.mu.Lock()
	defer b.mu.Unlock()

	byAsset := make(map[Asset][]ledger.Payment)
	for _, p := range payments {
		if p.Amount == nil || p.Amount.IsZero() {
			continue
		}
		if p.To != s.custody && b.refusing[p.To] {
			return &ledger.PaymentError{Payment: p, Err: ledger.ErrRecipientRefused}
		}
		asset := assetFor(p.Kind)
		byAsset[asset] = append(byAsset[asset], p)
	}

	// Stage every asset first so a failure in the second leaves the first intact.
	snapshot := make(map[Asset]map[common.Address]*uint256.Int, len(byAsset))
	for asset := range byAsset {
		cp := make(map[common.Address]*uint256.Int, len(b.balances[asset]))
		for addr, v := range b.balances[asset] {
			cp[addr] = v.Clone()
		}
		snapshot[asset] = cp
	}
	for _, asset := range []Asset{Tokens, Value} {
		batch := byAsset[asset]
		if len(batch) == 0 {
			continue
		}
		to := make([]common.Address, len(batch))
		amounts := make([]*uint256.Int, len(batch))
		for i, p := range batch {
			to[i], amounts[i] = p.To, p.Amount
		}
		if err := b.apply(asset, s.custody, to, amounts); err != nil {
			for a, m := range snapshot {
				b.balances[a] = m
			}
			return &ledger.PaymentError{Payment: batch[0], Err: err}
		}
	}
	return nil
}

func sortAddrs(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}
