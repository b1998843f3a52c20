/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the explicit configuration of a node. Everything that used to
// be an ambient constant (currency, notary, price table) lives here and is
// passed into constructors.
type Config struct {
	// Name is the endpoint name of this node on the comm network
	Name string `mapstructure:"name"`
	// Parties are the endpoint names of every participant, this node
	// included
	Parties []string `mapstructure:"parties"`
	// Notary is the endpoint name of the notary
	Notary string `mapstructure:"notary"`
	// Currency is the cash claim code used for collateral and payment legs
	Currency string `mapstructure:"currency"`
	// PriceTable is the path of the oracle's price file
	PriceTable string `mapstructure:"price_table"`
	// WindowSeconds bounds the validity of oracle-priced proposals
	WindowSeconds int `mapstructure:"window_seconds"`

	KVS struct {
		// Driver is badger or memory
		Driver string `mapstructure:"driver"`
		Path   string `mapstructure:"path"`
	} `mapstructure:"kvs"`

	Web struct {
		ListenAddress string `mapstructure:"listen_address"`
	} `mapstructure:"web"`
}

// Load reads the configuration from the passed file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("currency", "USD")
	v.SetDefault("window_seconds", 30)
	v.SetDefault("kvs.driver", "badger")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed reading configuration [%s]", path)
	}
	c := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(c, hook); err != nil {
		return nil, errors.Wrapf(err, "failed unmarshalling configuration [%s]", path)
	}
	return c, nil
}

// Window returns the validity window as a duration
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}
