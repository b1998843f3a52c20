/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "seclend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
name: alice
parties:
  - alice
  - bob
notary: notary
currency: GBP
price_table: /etc/seclend/prices.txt
window_seconds: 60
kvs:
  driver: memory
web:
  listen_address: 127.0.0.1:8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Name)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Parties)
	assert.Equal(t, "notary", cfg.Notary)
	assert.Equal(t, "GBP", cfg.Currency)
	assert.Equal(t, "/etc/seclend/prices.txt", cfg.PriceTable)
	assert.Equal(t, time.Minute, cfg.Window())
	assert.Equal(t, "memory", cfg.KVS.Driver)
	assert.Equal(t, "127.0.0.1:8080", cfg.Web.ListenAddress)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
name: alice
parties: [alice]
notary: notary
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 30*time.Second, cfg.Window())
	assert.Equal(t, "badger", cfg.KVS.Driver)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
