package clerk

import (
	"github.com/jinzhu/configor"
)

type Config struct {
	Clerk struct {
		// invoice-claim program whose accounts are scanned
		ProgramID string `default:"DVxvMr8TyPWpnT4tQc56SCLXAiNr2VC4w22R6i7B1V9U" required:"true" env:"PROGRAM_ID"`
		// key into the RPC map
		Network string `default:"devnet" required:"true" env:"NETWORK"`
	}

	// info for connecting to a Solana JSON-RPC node, keyed by network
	RPC map[string]RPCConfig

	Scanner struct {
		IntervalSeconds int  `default:"30"`
		TimeoutSeconds  int  `default:"20"`
		Workers         int  `default:"8"`
		VerifyAddresses bool `default:"true"`
		// fall back to polling if no change notification arrives in this time
		FallbackSeconds int `default:"120"`
	}

	Store struct {
		DBFile string `default:"ledgerclerk.db"`
	}

	WebAPI struct {
		AdminBind     string `default:"localhost"`
		AdminPort     string `default:"8081"`
		PubBind       string `default:"localhost"`
		PubPort       string `default:"8082"`
		PubAPIRootURL string `default:"http://localhost:8082"`
	}

	Logging struct {
		Level      string `default:"info"`
		File       string
		MaxSizeMB  int  `default:"50"`
		MaxBackups int  `default:"5"`
		Compress   bool `default:"true"`
	}

	Token struct {
		Symbol   string `default:"USDC"`
		Decimals int32  `default:"6"`
	}

	// event log files for bus messages
	Loggers map[string]LoggerConfig

	// HTTP callbacks for bus messages
	Callbacks map[string]CallbackConfig

	// MQTT brokers for bus messages
	MQTT map[string]MQTTConfig
}

type RPCConfig struct {
	URL        string `default:"https://api.devnet.solana.com"`
	WSURL      string `default:"wss://api.devnet.solana.com"`
	Commitment string `default:"confirmed"`
	Timeout    int    `default:"15"`
}

type LoggerConfig struct {
	Path  string
	Types []string
}

type CallbackConfig struct {
	Path       string
	HMACSecret string
	Types      []string
}

type MQTTConfig struct {
	Address  string
	ClientID string
	Username string
	Password string
	Topic    string `default:"ledgerclerk"`
	Types    []string
}

// Node returns the RPC config for the selected network.
func (c Config) Node() (RPCConfig, error) {
	node, ok := c.RPC[c.Clerk.Network]
	if !ok {
		return RPCConfig{}, NewErr(NotAvailable, "no RPC config for network %q", c.Clerk.Network)
	}
	return node, nil
}

// Program parses the configured program id.
func (c Config) Program() (Address, error) {
	p, err := ParseAddress(c.Clerk.ProgramID)
	if err != nil {
		return Address{}, NewErr(BadRequest, "invalid program id %q: %v", c.Clerk.ProgramID, err)
	}
	return p, nil
}

func LoadConfig(confPaths ...string) (Config, error) {
	c := Config{}
	err := configor.New(&configor.Config{ENVPrefix: "CLERK"}).Load(&c, confPaths...)
	return c, err
}
