package records

import (
	"context"
	"errors"
	"time"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// ErrNotFound is wrapped by every lookup miss. Policy misses also carry a
// *claim.PolicyNotFoundError.
var ErrNotFound = errors.New("record not found")

// #region sources

// PolicySource looks up policy records by number.
type PolicySource interface {
	Policy(ctx context.Context, policyNumber string) (claim.PolicyRecord, error)
}

// PrecedentSource returns historical cases for a claim type. An empty claim
// type returns every case.
type PrecedentSource interface {
	Precedents(ctx context.Context, claimType string) ([]claim.PrecedentCase, error)
}

// #endregion sources

// #region dataset

// Dataset is the on-disk shape of a records file.
type Dataset struct {
	Policies   []claim.PolicyRecord  `json:"policies" yaml:"policies"`
	Precedents []claim.PrecedentCase `json:"precedents" yaml:"precedents"`
}

// Config locates the records file and sizes the lookup cache.
type Config struct {
	Path            string        `mapstructure:"path" yaml:"path"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// DefaultConfig returns a five minute cache and no records file.
func DefaultConfig() Config {
	return Config{
		CacheTTL:        5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

// #endregion dataset
