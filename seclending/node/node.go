/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package node

import (
	"context"
	"time"

	"github.com/P0ntiff/seclending-smart-client/platform/ledger"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/comm"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/db/driver"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/kvs"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/registry"
	manager "github.com/P0ntiff/seclending-smart-client/platform/view/services/view"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
	"github.com/P0ntiff/seclending-smart-client/seclending/contracts"
	"github.com/P0ntiff/seclending-smart-client/seclending/oracle"
	"github.com/P0ntiff/seclending-smart-client/seclending/selector"
	"github.com/P0ntiff/seclending-smart-client/seclending/states"
	"github.com/P0ntiff/seclending-smart-client/seclending/views"
)

var logger = flogging.MustGetLogger("seclending.node")

// Node is one running participant: its identity, services, wiring and view
// manager.
type Node struct {
	Name       string
	Identity   view.Identity
	SP         *registry.ServiceProvider
	SigService *ledger.SigService
	Vault      *ledger.Vault
	Wiring     *views.Wiring
	Manager    *manager.Manager
}

// Network assembles an in-process deployment: a set of nodes, a notary and
// a shared price oracle, all talking over the channel-based comm layer.
type Network struct {
	Comm     *comm.Network
	Notary   *ledger.Notary
	NotaryID view.Identity
	Oracle   *oracle.Oracle
	OracleID view.Identity
	Nodes    map[string]*Node

	currency string
	window   time.Duration
	// directory holds every verifier, the notary checks signatures
	// against it and late-joining nodes copy it
	directory *ledger.SigService
	verifiers []struct {
		id view.Identity
		v  ledger.Verifier
	}
}

func newNetwork(notaryName, currency string, window time.Duration) (*Network, *ledger.ECDSASigner, error) {
	n := &Network{
		Comm:      comm.NewNetwork(),
		Nodes:     map[string]*Node{},
		currency:  currency,
		window:    window,
		directory: ledger.NewSigService(),
	}

	n.NotaryID = view.Identity(notaryName)
	notarySigner, notaryVerifier, err := ledger.NewECDSASigner()
	if err != nil {
		return nil, nil, err
	}
	n.Notary = ledger.NewNotary(n.NotaryID, notarySigner, n.directory)
	n.addVerifier(n.NotaryID, notaryVerifier)

	n.OracleID = view.Identity("oracle")
	oracleSigner, oracleVerifier, err := ledger.NewECDSASigner()
	if err != nil {
		return nil, nil, err
	}
	n.addVerifier(n.OracleID, oracleVerifier)
	return n, oracleSigner, nil
}

// NewNetwork returns a network with a notary and an oracle over the passed
// price table.
func NewNetwork(notaryName, currency string, window time.Duration, prices map[string]states.Amount) (*Network, error) {
	n, oracleSigner, err := newNetwork(notaryName, currency, window)
	if err != nil {
		return nil, err
	}
	n.Oracle = oracle.New(n.OracleID, oracleSigner, prices)
	return n, nil
}

// NewNetworkFromPriceFile is NewNetwork with the price table loaded from a
// file of `CODE = decimal` lines.
func NewNetworkFromPriceFile(notaryName, currency string, window time.Duration, path string) (*Network, error) {
	n, oracleSigner, err := newNetwork(notaryName, currency, window)
	if err != nil {
		return nil, err
	}
	n.Oracle, err = oracle.NewFromFile(n.OracleID, oracleSigner, path, currency)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Network) addVerifier(id view.Identity, v ledger.Verifier) {
	n.directory.RegisterVerifier(id, v)
	for _, node := range n.Nodes {
		node.SigService.RegisterVerifier(id, v)
	}
	n.verifiers = append(n.verifiers, struct {
		id view.Identity
		v  ledger.Verifier
	}{id, v})
}

// AddNode registers a new participant with its own key pair, vault over the
// passed store, wiring and responders.
func (n *Network) AddNode(name string, store driver.KeyValueStore) (*Node, error) {
	id := view.Identity(name)
	endpoint, err := n.Comm.NewEndpoint(name, id)
	if err != nil {
		return nil, err
	}

	sigService := ledger.NewSigService()
	signer, verifier, err := ledger.NewECDSASigner()
	if err != nil {
		return nil, err
	}
	sigService.RegisterSigner(id, signer)
	for _, known := range n.verifiers {
		sigService.RegisterVerifier(known.id, known.v)
	}
	n.addVerifier(id, verifier)

	vault, err := ledger.NewVault(kvs.New(store, "seclend"))
	if err != nil {
		return nil, err
	}
	contractRegistry := ledger.NewContractRegistry()
	contractRegistry.Register(contracts.ClaimContractID, &contracts.ClaimContract{})
	contractRegistry.Register(contracts.LoanContractID, &contracts.LoanContract{})

	wiring := &views.Wiring{
		Vault:    vault,
		Selector: selector.New(vault),
		Oracle:   n.Oracle,
		Registry: contractRegistry,
		Notary:   n.NotaryID,
		Currency: n.currency,
		Window:   n.window,
	}

	sp := registry.New()
	mgr := manager.NewManager(sp, endpoint, n.Comm, id)
	for _, service := range []interface{}{sigService, vault, contractRegistry, mgr} {
		if err := sp.RegisterService(service); err != nil {
			return nil, err
		}
	}
	if err := sp.RegisterService(n.Notary); err != nil {
		return nil, err
	}

	responders := []struct {
		responder view.View
		initiator view.View
	}{
		{views.NewTradeResponderView(wiring), &views.TradeView{}},
		{views.NewLoanIssueResponderView(wiring), &views.LoanIssueView{}},
		{views.NewMarginUpdateResponderView(wiring), &views.MarginUpdateView{}},
		{views.NewLoanNetResponderView(wiring), &views.LoanNetView{}},
		{views.NewTerminateResponderView(wiring), &views.TerminateView{}},
	}
	for _, r := range responders {
		if err := mgr.RegisterResponder(r.responder, r.initiator); err != nil {
			return nil, err
		}
	}

	node := &Node{
		Name:       name,
		Identity:   id,
		SP:         sp,
		SigService: sigService,
		Vault:      vault,
		Wiring:     wiring,
		Manager:    mgr,
	}
	n.Nodes[name] = node
	logger.Infof("node [%s] registered", name)
	return node, nil
}

// Start runs every node's view manager until the passed context is done
func (n *Network) Start(ctx context.Context) {
	for _, node := range n.Nodes {
		go node.Manager.Start(ctx)
	}
}
