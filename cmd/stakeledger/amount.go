package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// units maps accepted amount suffixes to their decimals.
var units = []struct {
	suffix   string
	decimals int
}{
	{"ether", 18},
	{"gwei", 9},
	{"wei", 0},
}

// parseAmount parses a base-unit integer or a decimal with a unit suffix.
func parseAmount(s string) (*uint256.Int, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	decimals := 0
	for _, u := range units {
		if strings.HasSuffix(in, u.suffix) {
			in = strings.TrimSpace(strings.TrimSuffix(in, u.suffix))
			decimals = u.decimals
			break
		}
	}

	whole, frac, _ := strings.Cut(in, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimals", s, decimals)
	}
	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	for _, c := range digits {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("invalid amount %q", s)
		}
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// formatEther renders x base units as a decimal ether amount.
func formatEther(x *uint256.Int) string {
	s := x.Dec()
	if len(s) <= 18 {
		s = strings.Repeat("0", 19-len(s)) + s
	}
	whole, frac := s[:len(s)-18], strings.TrimRight(s[len(s)-18:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// amountString shows base units with the ether value alongside.
func amountString(x *uint256.Int) string {
	return fmt.Sprintf("%s (%s ether)", x.Dec(), formatEther(x))
}

// parseAddress parses a 20-byte hex account id.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
