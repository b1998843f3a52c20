/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/db/driver"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/db/driver/badger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/db/driver/memory"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/config"
	"github.com/P0ntiff/seclending-smart-client/seclending/node"
	"github.com/P0ntiff/seclending-smart-client/seclending/web"
)

var logger = flogging.MustGetLogger("seclend")

func startCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the node and serve the web API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return start(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "seclend.yaml", "path to the configuration file")
	return cmd
}

func start(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.WithMessagef(err, "failed loading configuration from [%s]", configPath)
	}

	network, err := node.NewNetworkFromPriceFile(cfg.Notary, cfg.Currency, cfg.Window(), cfg.PriceTable)
	if err != nil {
		return errors.WithMessage(err, "failed assembling network")
	}
	for _, party := range cfg.Parties {
		store, err := openStore(cfg, party)
		if err != nil {
			return errors.WithMessagef(err, "failed opening store for [%s]", party)
		}
		if _, err := network.AddNode(party, store); err != nil {
			return errors.WithMessagef(err, "failed adding node [%s]", party)
		}
	}

	me, ok := network.Nodes[cfg.Name]
	if !ok {
		return errors.Errorf("configured name [%s] is not among the parties", cfg.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	network.Start(ctx)

	server := web.NewServer(cfg.Web.ListenAddress, me.Vault, me.Identity, func(name string) (view.Identity, error) {
		peer, ok := network.Nodes[name]
		if !ok {
			return nil, errors.Errorf("unknown party [%s]", name)
		}
		return peer.Identity, nil
	})
	go func() {
		if err := server.Start(); err != nil {
			logger.Errorf("web server stopped: %s", err)
		}
	}()
	logger.Infof("node [%s] started, web API on [%s]", cfg.Name, cfg.Web.ListenAddress)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Infof("shutting down")
	return nil
}

func openStore(cfg *config.Config, party string) (driver.KeyValueStore, error) {
	switch cfg.KVS.Driver {
	case "badger":
		return badger.OpenDB(filepath.Join(cfg.KVS.Path, party))
	case "memory":
		return memory.OpenDB(), nil
	default:
		return nil, errors.Errorf("unknown kvs driver [%s]", cfg.KVS.Driver)
	}
}
