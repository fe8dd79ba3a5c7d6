package wallet

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bitfsorg/libcash-go/config"
	"github.com/bitfsorg/libcash-go/log"
	"github.com/bitfsorg/libcash-go/metrics"
	"github.com/bitfsorg/libcash-go/network"
	"github.com/bitfsorg/libcash-go/slp"
	"github.com/bitfsorg/libcash-go/store"
	"github.com/bitfsorg/libcash-go/tx"
)

// Session is a wallet opened from configuration together with the
// resources it owns.
type Session struct {
	Wallet  *Wallet
	Keyring *Keyring
	Store   *store.BoltStore

	electrum *network.ElectrumClient
}

// Close releases the provider connection and the store.
func (s *Session) Close() error {
	var errs []error
	if s.electrum != nil {
		errs = append(errs, s.electrum.Close())
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return errors.Join(errs...)
}

// PolicyFromConfig maps the spending settings of cfg onto a tx.Policy.
func PolicyFromConfig(cfg config.Config) tx.Policy {
	p := tx.DefaultPolicy()
	p.FeeRate = cfg.FeeRate
	if cfg.DustLimit > 0 {
		p.DustLimit = cfg.DustLimit
	}
	p.CoinbaseMaturity = cfg.CoinbaseMaturity
	if cfg.MaxFeeRounds > 0 {
		p.MaxFeeRounds = cfg.MaxFeeRounds
	}
	p.SpendUnconfirmedTokens = cfg.SpendUnconfirmedTokens
	return p
}

// Open resolves walletID on the network named by cfg and connects it to
// the configured provider. An Electrum URL takes precedence over node RPC
// and also enables the watch methods. password unlocks named wallets.
//
// Open configures the process loggers from cfg and registers the metrics
// collectors with the default prometheus registerer.
func Open(ctx context.Context, cfg config.Config, walletID, password string) (*Session, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if err := log.Init(cfg.LogLevel, cfg.LogJSON, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("wallet: init logging: %w", err)
	}
	metrics.Register(prometheus.DefaultRegisterer, log.Wallet)

	id, err := ParseID(walletID)
	if err != nil {
		return nil, err
	}
	if id.Network != cfg.Network {
		return nil, fmt.Errorf("%w: wallet id is for %s, config is %s", ErrNetworkMismatch, id.Network, cfg.Network)
	}

	db, err := store.Open(filepath.Join(cfg.DataDir, store.DefaultFileName))
	if err != nil {
		return nil, err
	}
	s := &Session{Store: db, Keyring: NewKeyring(db.Wallets(), password)}

	acct, err := Resolve(id, s.Keyring)
	if err != nil {
		s.Close()
		return nil, err
	}

	opts := []Option{
		WithPolicy(PolicyFromConfig(cfg)),
		WithTokenAware(cfg.TokenAware),
	}
	var provider network.Provider
	if cfg.ElectrumURL != "" {
		client, err := network.DialElectrum(ctx, cfg.ElectrumURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.electrum = client
		provider = client
		opts = append(opts, WithSubscriber(client))
	} else {
		rpcCfg, err := network.ResolveConfig(&network.RPCConfig{
			URL:      cfg.RPCURL,
			User:     cfg.RPCUser,
			Password: cfg.RPCPassword,
		}, nil, cfg.Network)
		if err != nil {
			s.Close()
			return nil, err
		}
		provider = network.NewRPCClient(*rpcCfg)
	}
	opts = append(opts, WithClassifier(slp.NewClassifier(provider, slp.WithCache(db.Tokens()))))

	w, err := New(acct, provider, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Wallet = w
	return s, nil
}
