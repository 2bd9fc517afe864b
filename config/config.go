package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/virtual-hpc/hpcctl/internal/models"
)

type Config struct {
	Cluster models.Cluster
	Queues  []models.Queue
}

// Load reads cluster.yaml and queues.yaml from the given directory.
// IP and subnet fields land as net.IP/net.IPNet via decode hooks.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigType("yaml")

	for _, name := range []string{"cluster", "queues"} {
		v.SetConfigName(name)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read %s config: %w", name, err)
		}
	}

	cfg := Config{}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToIPHookFunc(),
			mapstructure.StringToIPNetHookFunc(),
		))); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
