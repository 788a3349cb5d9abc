// Package config loads the fixed replica set, cryptographic material, and
// protocol timing a node needs to run the core, the way CGCL-codes-Remora's
// config package is loaded by main.go (LoadConfig) and hand-built in tests
// (config.New).
package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.dedis.ch/kyber/v3/share"
)

// wireReplica is the on-disk shape of one replica table entry: keys travel
// as hex strings in the config file, the way viper-backed configs in this
// family (fork0/node_test.go builds the in-memory equivalent by hand)
// typically serialize raw key material.
type wireReplica struct {
	RID    uint16 `mapstructure:"rid"`
	Addr   string `mapstructure:"addr"`
	Port   int    `mapstructure:"port"`
	PubKey string `mapstructure:"pubkey"`
}

// ReplicaInfo is one entry of the fixed replica table: a stable small
// integer id, its network address, and its long-term ed25519 public key.
type ReplicaInfo struct {
	RID     uint16
	Addr    string
	Port    int
	PubKey  ed25519.PublicKey
}

// Config is the immutable-after-load configuration a node and its core are
// built from.
type Config struct {
	Name string
	RID  uint16

	Replicas []ReplicaInfo
	NFaulty  uint32
	NMaj     uint32
	Delta    time.Duration

	PrivateKey   ed25519.PrivateKey
	PublicKeyMap map[uint16]ed25519.PublicKey

	TSPrivateKey *share.PriShare
	TSPublicKey  *share.PubPoly

	LogLevel  int
	BatchSize int
	MaxPool   int
	Round     int
	IsFaulty  bool

	// NegVote forces this replica into the neg_vote abstention mode
	// exercised by scenario 4 of the spec's testable properties.
	NegVote bool
}

// New builds a Config directly from already-generated key material, the
// same constructor shape fork0/node_test.go's setupNodes uses.
func New(name string, rid uint16, replicas []ReplicaInfo, nFaulty uint32, delta time.Duration,
	priv ed25519.PrivateKey, pubKeyMap map[uint16]ed25519.PublicKey,
	tsPriv *share.PriShare, tsPub *share.PubPoly,
	logLevel int, isFaulty bool, batchSize int, round int) *Config {

	return &Config{
		Name:         name,
		RID:          rid,
		Replicas:     replicas,
		NFaulty:      nFaulty,
		NMaj:         nFaulty + 1,
		Delta:        delta,
		PrivateKey:   priv,
		PublicKeyMap: pubKeyMap,
		TSPrivateKey: tsPriv,
		TSPublicKey:  tsPub,
		LogLevel:     logLevel,
		IsFaulty:     isFaulty,
		BatchSize:    batchSize,
		Round:        round,
	}
}

// LoadConfig reads a viper-backed config file, always parsed as YAML
// whatever its extension, the way main.go's init() loads "config" from the
// working directory, plus any explicit path override.
func LoadConfig(path, name string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.SetDefault("batchsize", 100)
	v.SetDefault("maxpool", 8)
	v.SetDefault("round", 100)
	v.SetDefault("loglevel", 2)
	v.SetDefault("delta_ms", 1000)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read %q: %w", name, err)
	}

	cfg := &Config{
		Name:      v.GetString("name"),
		RID:       uint16(v.GetUint32("rid")),
		NFaulty:   v.GetUint32("nfaulty"),
		LogLevel:  v.GetInt("loglevel"),
		BatchSize: v.GetInt("batchsize"),
		MaxPool:   v.GetInt("maxpool"),
		Round:     v.GetInt("round"),
		IsFaulty:  v.GetBool("isfaulty"),
		NegVote:   v.GetBool("negvote"),
		Delta:     time.Duration(v.GetInt64("delta_ms")) * time.Millisecond,
	}
	cfg.NMaj = cfg.NFaulty + 1

	var wireReplicas []wireReplica
	if err := v.UnmarshalKey("replicas", &wireReplicas); err != nil {
		return nil, fmt.Errorf("config: failed to parse replica table: %w", err)
	}
	cfg.PublicKeyMap = make(map[uint16]ed25519.PublicKey, len(wireReplicas))
	for _, wr := range wireReplicas {
		pub, err := hex.DecodeString(wr.PubKey)
		if err != nil {
			return nil, fmt.Errorf("config: replica %d has invalid pubkey: %w", wr.RID, err)
		}
		info := ReplicaInfo{RID: wr.RID, Addr: wr.Addr, Port: wr.Port, PubKey: ed25519.PublicKey(pub)}
		cfg.Replicas = append(cfg.Replicas, info)
		cfg.PublicKeyMap[wr.RID] = info.PubKey
	}

	if privHex := v.GetString("privatekey"); privHex != "" {
		priv, err := hex.DecodeString(privHex)
		if err != nil {
			return nil, fmt.Errorf("config: invalid private key: %w", err)
		}
		cfg.PrivateKey = ed25519.PrivateKey(priv)
	}

	return cfg, nil
}
