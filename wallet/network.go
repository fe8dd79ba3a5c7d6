package wallet

import (
	"encoding/json"
	"fmt"
	"os"

	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/libcash-go/address"
)

// NetworkConfig defines the parameters of a Bitcoin Cash network.
type NetworkConfig struct {
	Name           string `json:"name"`
	CashAddrPrefix string `json:"cashaddr_prefix"`
	WIFPrefix      byte   `json:"wif_prefix"`
	Testnet        bool   `json:"testnet"`
	DefaultPort    uint16 `json:"default_port"`
	RPCPort        uint16 `json:"rpc_port"`
	GenesisHash    string `json:"genesis_hash"`
}

// Predefined network configurations.
var (
	MainNet = NetworkConfig{
		Name:           "mainnet",
		CashAddrPrefix: address.PrefixMainnet,
		WIFPrefix:      0x80,
		DefaultPort:    8333,
		RPCPort:        8332,
		GenesisHash:    "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
	}

	TestNet = NetworkConfig{
		Name:           "testnet",
		CashAddrPrefix: address.PrefixTestnet,
		WIFPrefix:      0xef,
		Testnet:        true,
		DefaultPort:    18333,
		RPCPort:        18332,
		GenesisHash:    "000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943",
	}

	RegTest = NetworkConfig{
		Name:           "regtest",
		CashAddrPrefix: address.PrefixRegtest,
		WIFPrefix:      0xef,
		Testnet:        true,
		DefaultPort:    18444,
		RPCPort:        18443,
		GenesisHash:    "0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206",
	}
)

// predefined maps network names to their configs.
var predefined = map[string]*NetworkConfig{
	"mainnet": &MainNet,
	"testnet": &TestNet,
	"regtest": &RegTest,
}

// GetNetwork returns a predefined network by name.
// If the name is not predefined, it returns ErrInvalidNetwork.
func GetNetwork(name string) (*NetworkConfig, error) {
	if net, ok := predefined[name]; ok {
		return net, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}

// LoadCustomNetwork loads a NetworkConfig from a JSON file.
func LoadCustomNetwork(path string) (*NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to read network config: %w", err)
	}

	var config NetworkConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("wallet: failed to parse network config: %w", err)
	}

	if config.Name == "" {
		return nil, fmt.Errorf("wallet: network config must have a name")
	}
	if config.CashAddrPrefix == "" {
		return nil, fmt.Errorf("wallet: network config must have a cashaddr prefix")
	}
	if config.WIFPrefix == 0 {
		config.WIFPrefix = 0xef
		if !config.Testnet {
			config.WIFPrefix = 0x80
		}
	}

	return &config, nil
}

// chainParams maps the network onto the go-sdk BIP32 parameters.
func (n *NetworkConfig) chainParams() *chaincfg.Params {
	if n.Testnet {
		return &chaincfg.TestNet
	}
	return &chaincfg.MainNet
}

// wifLeads returns the leading base58 characters of a compressed or
// uncompressed WIF on this network.
func (n *NetworkConfig) wifLeads() string {
	if n.Testnet {
		return "c9"
	}
	return "KL5"
}
