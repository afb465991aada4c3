/*
Package config holds the configuration of the simulator: approval rules,
gas constants, logging, RPC server and approval store settings. The
configuration is loaded from YAML file, fields missing from the file keep
their default value.
*/
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/runtime"
	"github.com/alphabill-org/alphabill-nft/types"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

var validate = validator.New()

type (
	Config struct {
		Approvals ApprovalsConfig `yaml:"approvals"`
		Gas       GasConfig       `yaml:"gas"`
		Storage   StorageConfig   `yaml:"storage"`
		Log       LogConfig       `yaml:"log"`
		RPC       RPCConfig       `yaml:"rpc"`
		Store     StoreConfig     `yaml:"store"`
	}

	ApprovalsConfig struct {
		MaxPerToken int    `yaml:"max_per_token" validate:"min=1"`
		InitialID   uint64 `yaml:"initial_id" validate:"min=1"`
	}

	// GasConfig values are in TGas, max value is the largest one which
	// fits into types.Gas. Function call base gas is burnt before the
	// approve call runs, so it must fit into the approve reserve.
	GasConfig struct {
		Approve          uint64 `yaml:"approve" validate:"min=1,max=18446744"`
		ResolveApprove   uint64 `yaml:"resolve_approve" validate:"min=1,max=18446744"`
		MinReceiver      uint64 `yaml:"min_receiver" validate:"min=1,max=18446744"`
		FunctionCallBase uint64 `yaml:"function_call_base" validate:"ltefield=Approve"`
		View             uint64 `yaml:"view" validate:"min=1,max=18446744"`
	}

	StorageConfig struct {
		// ByteCost is the yocto amount a byte of storage costs, as decimal string.
		ByteCost string `yaml:"byte_cost" validate:"required,numeric"`
	}

	LogConfig struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=text json"`
	}

	RPCConfig struct {
		Listen         string        `yaml:"listen" validate:"required,hostname_port"`
		RedisAddr      string        `yaml:"redis_addr" validate:"omitempty,hostname_port"`
		IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
	}

	StoreConfig struct {
		Driver string `yaml:"driver" validate:"oneof=memory sqlite mysql"`
		DSN    string `yaml:"dsn" validate:"required_unless=Driver memory"`
	}
)

func DefaultConfig() *Config {
	ac := approvals.DefaultConfig()
	rc := runtime.DefaultConfig()
	return &Config{
		Approvals: ApprovalsConfig{
			MaxPerToken: ac.MaxApprovalsPerToken,
			InitialID:   ac.InitialApprovalID,
		},
		Gas: GasConfig{
			Approve:          uint64(ac.GasForApprove / types.TGas(1)),
			ResolveApprove:   uint64(ac.GasForResolveApprove / types.TGas(1)),
			MinReceiver:      uint64(ac.MinGasForReceiver / types.TGas(1)),
			FunctionCallBase: uint64(rc.FunctionCallBaseGas / types.TGas(1)),
			View:             uint64(rc.ViewGas / types.TGas(1)),
		},
		Storage: StorageConfig{ByteCost: ac.StorageByteCost.String()},
		Log:     LogConfig{Level: "info", Format: "text"},
		RPC: RPCConfig{
			Listen:         "localhost:8080",
			IdempotencyTTL: 5 * time.Minute,
		},
		Store: StoreConfig{Driver: StoreMemory},
	}
}

/*
Load reads YAML configuration from the file and validates it. Empty
filename returns the default configuration.
*/
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()
	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("opening config file: %w", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ac, err := c.ApprovalsConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := ac.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApprovalsConfig returns the configuration of the approval manager.
func (c *Config) ApprovalsConfig() (approvals.Config, error) {
	byteCost, err := types.ParseAmount(c.Storage.ByteCost)
	if err != nil {
		return approvals.Config{}, fmt.Errorf("storage byte cost: %w", err)
	}
	return approvals.Config{
		MaxApprovalsPerToken: c.Approvals.MaxPerToken,
		InitialApprovalID:    c.Approvals.InitialID,
		StorageByteCost:      byteCost,
		GasForApprove:        types.TGas(c.Gas.Approve),
		GasForResolveApprove: types.TGas(c.Gas.ResolveApprove),
		MinGasForReceiver:    types.TGas(c.Gas.MinReceiver),
	}, nil
}

func (c *Config) RuntimeConfig() runtime.Config {
	return runtime.Config{
		FunctionCallBaseGas: types.TGas(c.Gas.FunctionCallBase),
		ViewGas:             types.TGas(c.Gas.View),
	}
}

// Logger returns logger writing into w with the configured level and format.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Log.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Log.Format)
	}
}
