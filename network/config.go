package network

import "fmt"

// RPCConfig holds the connection parameters for a node's JSON-RPC interface.
type RPCConfig struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
	Network  string `json:"network"`
}

// NetworkPresets contains default RPC configurations for local test nodes.
// Mainnet has no preset and must be configured explicitly.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18443", User: "libcash", Password: "libcash"},
	"testnet": {URL: "http://localhost:18332", User: "libcash", Password: "libcash"},
}

// Environment variables consulted by ResolveConfig.
const (
	EnvRPCURL  = "LIBCASH_RPC_URL"
	EnvRPCUser = "LIBCASH_RPC_USER"
	EnvRPCPass = "LIBCASH_RPC_PASS"
)

// ResolveConfig merges RPC configuration from three sources with decreasing priority:
//  1. explicit values (flags or a config file)
//  2. environment variables (LIBCASH_RPC_URL, LIBCASH_RPC_USER, LIBCASH_RPC_PASS)
//  3. network presets (regtest/testnet only)
func ResolveConfig(explicit *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}

	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	if env != nil {
		overlay(&result.URL, env[EnvRPCURL])
		overlay(&result.User, env[EnvRPCUser])
		overlay(&result.Password, env[EnvRPCPass])
	}
	if explicit != nil {
		overlay(&result.URL, explicit.URL)
		overlay(&result.User, explicit.User)
		overlay(&result.Password, explicit.Password)
	}

	if result.URL == "" {
		return nil, fmt.Errorf("network: %s requires explicit RPC configuration (set rpc_url or %s)", network, EnvRPCURL)
	}
	return &result, nil
}
