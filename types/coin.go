// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	safemath "github.com/ava-labs/avalanchego/utils/math"
)

var (
	denomRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9/:._-]{2,127}$`)
	coinRegex  = regexp.MustCompile(`^([0-9]+)([a-zA-Z][a-zA-Z0-9/:._-]{2,127})$`)
)

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string `serialize:"true" json:"denom"`
	Amount uint64 `serialize:"true" json:"amount"`
}

// NewCoin returns [amount] of [denom].
func NewCoin(amount uint64, denom string) Coin {
	return Coin{Denom: denom, Amount: amount}
}

func (c Coin) String() string {
	return strconv.FormatUint(c.Amount, 10) + c.Denom
}

// ValidateDenom returns a ValidationError if [denom] is malformed.
func ValidateDenom(denom string) error {
	if !denomRegex.MatchString(denom) {
		return Validationf("invalid denomination %q", denom)
	}
	return nil
}

// Coins is a set of coins sorted by denomination, with unique denominations
// and no zero amounts.
type Coins []Coin

// NewCoins returns the normalized set of [coins]: zero amounts are dropped and
// repeated denominations are summed. It panics on overflow or a malformed
// denomination; use Normalize for untrusted input.
func NewCoins(coins ...Coin) Coins {
	c, err := Normalize(coins)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalize sorts [coins], merges repeated denominations and drops zero
// amounts.
func Normalize(coins []Coin) (Coins, error) {
	byDenom := make(map[string]uint64, len(coins))
	for _, c := range coins {
		if err := ValidateDenom(c.Denom); err != nil {
			return nil, err
		}
		sum, err := safemath.Add64(byDenom[c.Denom], c.Amount)
		if err != nil {
			return nil, Validationf("coin %s: %s", c.Denom, err)
		}
		byDenom[c.Denom] = sum
	}
	out := make(Coins, 0, len(byDenom))
	for denom, amount := range byDenom {
		if amount == 0 {
			continue
		}
		out = append(out, Coin{Denom: denom, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out, nil
}

// ParseCoins parses a comma separated list such as "10utok,3uatom".
func ParseCoins(s string) (Coins, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Coins{}, nil
	}
	var coins []Coin
	for _, part := range strings.Split(s, ",") {
		m := coinRegex.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return nil, Validationf("invalid coin %q", part)
		}
		amount, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return nil, Validationf("invalid coin amount %q: %s", part, err)
		}
		coins = append(coins, Coin{Denom: m[2], Amount: amount})
	}
	return Normalize(coins)
}

// Validate reports whether [c] is in normalized form.
func (c Coins) Validate() error {
	for i, coin := range c {
		if err := ValidateDenom(coin.Denom); err != nil {
			return err
		}
		if coin.Amount == 0 {
			return Validationf("zero amount of %s", coin.Denom)
		}
		if i > 0 && c[i-1].Denom >= coin.Denom {
			return Validationf("coins are not sorted or have duplicate denomination %s", coin.Denom)
		}
	}
	return nil
}

// IsZero reports whether [c] holds nothing.
func (c Coins) IsZero() bool { return len(c) == 0 }

// AmountOf returns the amount of [denom] in [c].
func (c Coins) AmountOf(denom string) uint64 {
	i := sort.Search(len(c), func(i int) bool { return c[i].Denom >= denom })
	if i < len(c) && c[i].Denom == denom {
		return c[i].Amount
	}
	return 0
}

// Add returns c + other.
func (c Coins) Add(other Coins) (Coins, error) {
	all := make([]Coin, 0, len(c)+len(other))
	all = append(all, c...)
	all = append(all, other...)
	return Normalize(all)
}

// Sub returns c - other. Subtracting more than [c] holds of any denomination
// is a ValidationError.
func (c Coins) Sub(other Coins) (Coins, error) {
	out := make([]Coin, 0, len(c))
	out = append(out, c...)
	for _, o := range other {
		have := Coins(out).AmountOf(o.Denom)
		left, err := safemath.Sub64(have, o.Amount)
		if err != nil {
			return nil, Validationf("insufficient funds: have %d%s, need %s", have, o.Denom, o)
		}
		out = setAmount(out, o.Denom, left)
	}
	return Normalize(out)
}

func setAmount(coins []Coin, denom string, amount uint64) []Coin {
	for i := range coins {
		if coins[i].Denom == denom {
			coins[i].Amount = amount
			return coins
		}
	}
	return append(coins, Coin{Denom: denom, Amount: amount})
}

func (c Coins) String() string {
	parts := make([]string, len(c))
	for i, coin := range c {
		parts[i] = coin.String()
	}
	return strings.Join(parts, ",")
}

// Equal reports whether both sets hold the same amounts.
func (c Coins) Equal(other Coins) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}
