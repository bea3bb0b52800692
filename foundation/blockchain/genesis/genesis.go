// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultPath is where the simulator looks for the genesis file.
const DefaultPath = "zblock/genesis.json"

// ErrInvalidGenesis is returned when a setting can't run a simulation.
var ErrInvalidGenesis = errors.New("invalid genesis")

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time         `json:"date"`
	TransPerBlock uint16            `json:"trans_per_block" validate:"min=1"` // The maximum number of transactions that can be in a block.
	Difficulty    uint16            `json:"difficulty" validate:"max=256"`    // Number of leading zero bits a block hash needs to solve the work problem.
	MiningReward  uint64            `json:"mining_reward"`                    // Reward for mining a block.
	Balances      map[string]uint64 `json:"balances"`                         // Funds allocated before the first block.
}

// Default returns the genesis used when no file is available.
func Default() Genesis {
	return Genesis{
		Date:          time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC),
		TransPerBlock: 10,
		Difficulty:    20,
		MiningReward:  1000,
		Balances:      map[string]uint64{},
	}
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	if genesis.Balances == nil {
		genesis.Balances = map[string]uint64{}
	}

	return genesis, nil
}

// Validate checks every block can hold a transaction and the difficulty
// fits in a block hash.
func (g Genesis) Validate() error {
	err := validate.Struct(g)
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) {
		return err
	}

	fe := verrors[0]
	return fmt.Errorf("%w: %s: got %v, want %s=%s", ErrInvalidGenesis, fe.Field(), fe.Value(), fe.Tag(), fe.Param())
}

// =============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report the field names used in the file.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})

	return v
}
