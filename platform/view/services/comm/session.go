/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// GenerateUUID returns a fresh unique identifier for sessions and contexts.
func GenerateUUID() string {
	return uuid.New().String()
}

type session struct {
	id             string
	contextID      string
	callerViewID   string
	callerIdentity view.Identity
	local          *Service
	remote         string
	in             chan *view.Message

	closed    atomic.Bool
	closeOnce sync.Once
}

func (s *session) Info() view.SessionInfo {
	return view.SessionInfo{
		ID:           s.id,
		Caller:       s.callerIdentity,
		CallerViewID: s.callerViewID,
		Endpoint:     s.remote,
		Closed:       s.closed.Load(),
	}
}

func (s *session) Send(payload []byte) error {
	return s.send(view.OK, payload)
}

func (s *session) SendError(payload []byte) error {
	return s.send(view.ERROR, payload)
}

func (s *session) send(status int32, payload []byte) error {
	if s.closed.Load() {
		return errors.Errorf("session [%s] is closed", s.id)
	}
	return s.local.network.route(s.remote, &view.Message{
		SessionID:    s.id,
		ContextID:    s.contextID,
		Caller:       s.callerViewID,
		FromEndpoint: s.local.name,
		Status:       status,
		Payload:      payload,
	})
}

func (s *session) Receive() <-chan *view.Message {
	return s.in
}

func (s *session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.in)
		logger.Debugf("[%s] closed session [%s]", s.local.name, s.id)
	})
}

// masterSession only receives; protocols never write to it directly.
type masterSession struct {
	service *Service
}

func (m *masterSession) Info() view.SessionInfo {
	return view.SessionInfo{ID: "master", Endpoint: m.service.name}
}

func (m *masterSession) Send([]byte) error {
	return errors.New("cannot send on the master session")
}

func (m *masterSession) SendError([]byte) error {
	return errors.New("cannot send on the master session")
}

func (m *masterSession) Receive() <-chan *view.Message {
	return m.service.master
}

func (m *masterSession) Close() {}
