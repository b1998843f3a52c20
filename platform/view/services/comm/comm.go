/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

var logger = flogging.MustGetLogger("view-sdk.comm")

// messageBufferSize bounds the number of in-flight messages per session.
const messageBufferSize = 100

// Network connects a set of in-process endpoints. It stands in for the
// p2p transport: each registered endpoint owns a master session receiving
// the first message of every new protocol, plus one session per open
// conversation.
type Network struct {
	mu        sync.RWMutex
	endpoints map[string]*Service
}

func NewNetwork() *Network {
	return &Network{endpoints: map[string]*Service{}}
}

// NewEndpoint registers a new endpoint with the passed name and identity.
// The endpoint name doubles as the transport address.
func (n *Network) NewEndpoint(name string, id view.Identity) (*Service, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.endpoints[name]; ok {
		return nil, errors.Errorf("endpoint [%s] already registered", name)
	}
	s := &Service{
		network:  n,
		name:     name,
		identity: id,
		master:   make(chan *view.Message, messageBufferSize),
		sessions: map[string]*session{},
	}
	n.endpoints[name] = s
	return s, nil
}

// GetIdentity resolves an endpoint name to the identity registered for it.
func (n *Network) GetIdentity(endpoint string) (view.Identity, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.endpoints[endpoint]
	if !ok {
		return nil, errors.Errorf("endpoint [%s] not known", endpoint)
	}
	return e.identity, nil
}

// Endpoint resolves an identity to the endpoint name it is registered under.
func (n *Network) Endpoint(party view.Identity) (string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for name, e := range n.endpoints {
		if e.identity.Equal(party) {
			return name, nil
		}
	}
	return "", errors.Errorf("no endpoint found for identity [%s]", party)
}

func (n *Network) route(endpoint string, msg *view.Message) error {
	n.mu.RLock()
	target, ok := n.endpoints[endpoint]
	n.mu.RUnlock()
	if !ok {
		return errors.Errorf("cannot route to unknown endpoint [%s]", endpoint)
	}
	return target.deliver(msg)
}

// Service is the comm layer of a single endpoint.
type Service struct {
	network  *Network
	name     string
	identity view.Identity

	master chan *view.Message

	mu       sync.RWMutex
	sessions map[string]*session
}

// Identity returns the identity bound to this endpoint.
func (s *Service) Identity() view.Identity {
	return s.identity
}

// MasterSession returns the session receiving the first message of each
// protocol initiated by a remote party.
func (s *Service) MasterSession() (view.Session, error) {
	return &masterSession{service: s}, nil
}

// NewSession opens a new session towards the passed endpoint on behalf of
// the passed caller view.
func (s *Service) NewSession(caller string, contextID string, endpoint string, pkid []byte) (view.Session, error) {
	return s.newSession(GenerateUUID(), contextID, caller, endpoint, nil, nil)
}

// NewSessionWithID opens a session with a given identifier. It is used on the
// responder side to bind the session to the one the initiator opened.
func (s *Service) NewSessionWithID(sessionID, contextID, endpoint string, pkid []byte, caller view.Identity, msg *view.Message) (view.Session, error) {
	sess, err := s.newSession(sessionID, contextID, "", endpoint, caller, msg)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// DeleteSessions closes and drops all sessions with the passed identifier.
func (s *Service) DeleteSessions(ctx context.Context, sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
}

func (s *Service) newSession(id, contextID, callerViewID, remote string, caller view.Identity, first *view.Message) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	sess := &session{
		id:             id,
		contextID:      contextID,
		callerViewID:   callerViewID,
		callerIdentity: caller,
		local:          s,
		remote:         remote,
		in:             make(chan *view.Message, messageBufferSize),
	}
	if first != nil {
		sess.in <- first
	}
	s.sessions[id] = sess
	logger.Debugf("[%s] opened session [%s] towards [%s]", s.name, id, remote)
	return sess, nil
}

func (s *Service) deliver(msg *view.Message) error {
	s.mu.RLock()
	sess, ok := s.sessions[msg.SessionID]
	s.mu.RUnlock()
	if ok {
		select {
		case sess.in <- msg:
			return nil
		default:
			return errors.Errorf("session [%s] at [%s] is saturated", msg.SessionID, s.name)
		}
	}
	// first message of a new protocol, hand it to the master session
	select {
	case s.master <- msg:
		return nil
	default:
		return errors.Errorf("master session at [%s] is saturated", s.name)
	}
}
