package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/arborvote/arborvote/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Load reads the .env file specified by ARBOR_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("ARBOR_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// LoadParams builds the engine parameters: built-in defaults, then the
// TOML file named by ARBOR_PARAMS_FILE, then ARBOR_* overrides.
func LoadParams() (domain.Params, error) {
	params := domain.DefaultParams()

	if path := os.Getenv("ARBOR_PARAMS_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &params); err != nil {
			return domain.Params{}, fmt.Errorf("decode params file %s: %w", path, err)
		}
	}

	setUint(&params.InitialTokens, "ARBOR_INITIAL_TOKENS")
	setUint(&params.FeeBps, "ARBOR_FEE_BPS")
	setUint(&params.DisputeDeposit, "ARBOR_DISPUTE_DEPOSIT")
	setInt64(&params.Tally.ChildWeight, "ARBOR_TALLY_CHILD_WEIGHT")
	if v := os.Getenv("ARBOR_TALLY_INVALID"); v != "" {
		params.Tally.Invalid = domain.InvalidPolicy(v)
	}

	if err := params.Validate(); err != nil {
		return domain.Params{}, err
	}
	return params, nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL is optional. Without it the operation journal is kept in memory.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// RedisAddr selects the Redis identity registry when set. Otherwise the
// VERIFIED_ADDRESSES allowlist is used.
func RedisAddr() string {
	return os.Getenv("REDIS_ADDR")
}

func RedisPassword() string {
	return os.Getenv("REDIS_PASSWORD")
}

func RedisDB() int {
	db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		return 0
	}
	return db
}

func RedisTLSEnabled() bool {
	v, _ := strconv.ParseBool(os.Getenv("REDIS_TLS_ENABLED"))
	return v
}

// IdentityRegistryKey returns the Redis set holding verified addresses.
func IdentityRegistryKey() string {
	return os.Getenv("IDENTITY_REGISTRY_KEY")
}

// VerifiedAddresses parses the comma separated VERIFIED_ADDRESSES list.
func VerifiedAddresses() ([]common.Address, error) {
	return addressList(os.Getenv("VERIFIED_ADDRESSES"))
}

// ArbitratorAddress is the address rulings must come from.
// Defaults to 0x...a4b17 if not set.
func ArbitratorAddress() (common.Address, error) {
	return address("ARBITRATOR_ADDRESS", common.HexToAddress("0x00000000000000000000000000000000000a4b17"))
}

// EscrowAddress is the account holding dispute deposits.
func EscrowAddress() (common.Address, error) {
	return address("ESCROW_ADDRESS", common.HexToAddress("0x00000000000000000000000000000000000e5c70"))
}

// StakeGrant is how many stake tokens each verified address is minted and
// approves for dispute deposits at startup. Zero disables the grant.
func StakeGrant() uint64 {
	n, err := strconv.ParseUint(os.Getenv("STAKE_GRANT"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// KeeperInterval returns how often every debate is advanced.
// Defaults to 30s if not set.
func KeeperInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("KEEPER_INTERVAL"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// IdentityTimeout bounds each identity registry query.
// Defaults to 5s if not set.
func IdentityTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("IDENTITY_TIMEOUT"))
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// SignatureMaxSkew is how far a signed request's timestamp may be from
// the server clock. Defaults to 5m if not set.
func SignatureMaxSkew() time.Duration {
	d, err := time.ParseDuration(os.Getenv("SIGNATURE_MAX_SKEW"))
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func address(key string, def common.Address) (common.Address, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", key, v)
	}
	return common.HexToAddress(v), nil
}

func addressList(raw string) ([]common.Address, error) {
	var out []common.Address
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !common.IsHexAddress(part) {
			return nil, fmt.Errorf("invalid address %q", part)
		}
		out = append(out, common.HexToAddress(part))
	}
	return out, nil
}

func setUint(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
