/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

var logger = flogging.MustGetLogger("view-sdk.session.json")

// defaultReceiveTimeout bounds how long Receive waits for the counterparty.
const defaultReceiveTimeout = 10 * time.Second

type Session interface {
	view.Session
}

type jsonSession struct {
	s       Session
	context context.Context
}

// NewJSON opens a JSON session to the passed party on behalf of the passed caller view.
func NewJSON(context view.Context, caller view.View, party view.Identity) (*jsonSession, error) {
	s, err := context.GetSession(caller, party)
	if err != nil {
		return nil, err
	}
	return &jsonSession{s: s, context: context.Context()}, nil
}

// JSON wraps the context's default session.
func JSON(context view.Context) *jsonSession {
	return &jsonSession{s: context.Session(), context: context.Context()}
}

func (j *jsonSession) Receive(state interface{}) error {
	return j.ReceiveWithTimeout(state, defaultReceiveTimeout)
}

func (j *jsonSession) ReceiveWithTimeout(state interface{}, d time.Duration) error {
	raw, err := j.ReceiveRawWithTimeout(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, state)
}

// ReceiveRaw returns the next raw payload received on the session.
func (j *jsonSession) ReceiveRaw() ([]byte, error) {
	return j.ReceiveRawWithTimeout(defaultReceiveTimeout)
}

func (j *jsonSession) ReceiveRawWithTimeout(d time.Duration) ([]byte, error) {
	timeout := time.NewTimer(d)
	defer timeout.Stop()

	ch := j.s.Receive()
	select {
	case msg := <-ch:
		if msg == nil {
			return nil, errors.New("session closed")
		}
		if msg.Status == view.ERROR {
			return nil, errors.Errorf("received error from remote [%s]", string(msg.Payload))
		}
		logger.Debugf("json session, received message of [%d] bytes", len(msg.Payload))
		return msg.Payload, nil
	case <-timeout.C:
		return nil, errors.New("time out reached")
	case <-j.context.Done():
		return nil, errors.Errorf("context done [%s]", j.context.Err())
	}
}

func (j *jsonSession) Send(state interface{}) error {
	v, err := json.Marshal(state)
	if err != nil {
		return err
	}
	logger.Debugf("json session, send message of [%d] bytes", len(v))
	return j.s.Send(v)
}

// SendRaw sends the passed payload as is.
func (j *jsonSession) SendRaw(raw []byte) error {
	return j.s.Send(raw)
}

func (j *jsonSession) SendError(err string) error {
	logger.Debugf("json session, send error [%s]", err)
	return j.s.SendError([]byte(err))
}

func (j *jsonSession) Session() Session {
	return j.s
}
