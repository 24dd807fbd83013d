package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"WalletCore/internal/address"
	"WalletCore/internal/factors"
	"WalletCore/internal/keyring"
	"WalletCore/internal/logger"
	"WalletCore/internal/network"
	"WalletCore/internal/profile"
	"WalletCore/internal/remote"
	"WalletCore/internal/signing"
	"WalletCore/internal/storage"
)

// dialTimeout bounds connecting to one signer host.
const dialTimeout = 10 * time.Second

// buildKeyring loads the locally held sources of cfg and returns them with
// the remotely held ones.
func buildKeyring(cfg *Config) (*keyring.Keyring, []factors.FactorSource, error) {
	keys := keyring.New(cfg.Concurrency)
	sources := make([]factors.FactorSource, 0, len(cfg.Sources))

	for i, sc := range cfg.Sources {
		source, err := addSource(keys, sc)
		if err != nil {
			return nil, nil, fmt.Errorf("source %d (%s):\n%w", i, sc.Label, err)
		}
		sources = append(sources, source)
	}

	return keys, sources, nil
}

// addSource adds one configured source to the keyring, or describes a remote one.
func addSource(keys *keyring.Keyring, sc SourceConfig) (factors.FactorSource, error) {
	if sc.Mnemonic == "" {
		if sc.ID == "" {
			return factors.FactorSource{}, fmt.Errorf("source needs a mnemonic or an id")
		}

		id, err := factors.ParseFactorSourceID(sc.ID)
		if err != nil {
			return factors.FactorSource{}, err
		}

		return factors.NewFactorSource(id, sc.Label), nil
	}

	var (
		source factors.FactorSource
		err    error
	)

	if sc.Kind == factors.TrustedContact {
		account, perr := address.Parse(sc.Contact)
		if perr != nil {
			return factors.FactorSource{}, fmt.Errorf("contact account:\n%w", perr)
		}
		source, err = keys.AddTrustedContact(account, sc.Mnemonic, sc.Passphrase, sc.Label)
	} else {
		source, err = keys.AddMnemonic(sc.Kind, sc.Mnemonic, sc.Passphrase, sc.Label)
	}

	if err != nil {
		return factors.FactorSource{}, err
	}

	if sc.Policy != "" {
		policy, err := keyring.ParsePolicy(sc.Policy)
		if err != nil {
			return factors.FactorSource{}, err
		}
		if err := keys.SetPolicy(source.ID, policy); err != nil {
			return factors.FactorSource{}, err
		}
	}

	return source, nil
}

// wallet is what commands acting for the wallet share: the profile store,
// local keys and routes to remote signer hosts.
type wallet struct {
	cfg     *Config                                       // cfg is the loaded configuration
	network address.NetworkID                             // network is the profile network
	db      *storage.Storage                              // db backs the profile store
	store   *profile.Store                                // store holds the profile
	keys    *keyring.Keyring                              // keys holds locally held sources
	sources []factors.FactorSource                        // sources are every configured source
	node    *network.Node                                 // node dials remote hosts, nil until connect
	signer  *remote.KindRouter[signing.TransactionIntent] // signer routes sign batches by kind
	deriver *remote.DeriveRouter                          // deriver routes derive batches by kind
}

// openWallet opens the profile database and loads local keys.
func openWallet(cfg *Config) (*wallet, error) {
	networkID, err := address.ParseNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	keys, sources, err := buildKeyring(cfg)
	if err != nil {
		return nil, fmt.Errorf("load sources:\n%w", err)
	}

	db, err := storage.Open(cfg.DataPath, storage.Options{})
	if err != nil {
		return nil, fmt.Errorf("open storage:\n%w", err)
	}

	local := keyring.Signer[signing.TransactionIntent](keys)

	w := &wallet{
		cfg:     cfg,
		network: networkID,
		db:      db,
		store:   profile.NewStore(db),
		keys:    keys,
		sources: sources,
		signer:  remote.NewKindRouter[signing.TransactionIntent](),
		deriver: remote.NewDeriveRouter(),
	}

	// Local keys answer every kind no remote claims.
	w.signer.Route(local, factors.AllKinds()...)
	w.deriver.Route(keys, factors.AllKinds()...)

	return w, nil
}

// connect dials every configured remote and routes its kinds to it.
func (w *wallet) connect(ctx context.Context) error {
	if len(w.cfg.Remotes) == 0 {
		return nil
	}

	key, err := loadOrGenerateKey(w.cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := network.NewNode(network.Config{PrivateKey: key})
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}
	w.node = node

	for _, rc := range w.cfg.Remotes {
		hostKey, err := network.ParsePublicKey(rc.Key)
		if err != nil {
			return fmt.Errorf("remote %s:\n%w", rc.Addr, err)
		}

		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		peer, err := node.Dial(dialCtx, rc.Addr, hostKey)
		cancel()

		if err != nil {
			return fmt.Errorf("connect remote:\n%w", err)
		}

		client := remote.NewClient(peer)
		w.signer.Route(remote.SignInteractor[signing.TransactionIntent](client), rc.Kinds...)
		w.deriver.Route(client, rc.Kinds...)

		logger.Info("connected signer host", "addr", rc.Addr, "key", network.KeyID(hostKey), "kinds", rc.Kinds)
	}

	return nil
}

// loadProfile returns the stored profile with every configured source added.
func (w *wallet) loadProfile() (*profile.Profile, error) {
	p, err := w.store.Load()
	if err != nil {
		return nil, err
	}

	for _, s := range w.sources {
		if p.FactorSources.Contains(s.ID) {
			continue
		}
		if err := p.AddFactorSource(s); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Close releases the database and network connections.
func (w *wallet) Close() error {
	var errs []error

	if w.node != nil {
		errs = append(errs, w.node.Close())
	}

	errs = append(errs, w.db.Close())

	return errors.Join(errs...)
}
