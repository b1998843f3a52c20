/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/comm"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

type localContext interface {
	disposableContext
	cleanup()
	PutSession(caller view.View, party view.Identity, session view.Session) error
}

type ctx struct {
	context        context.Context
	sp             ServiceProvider
	id             string
	session        view.Session
	initiator      view.View
	me             view.Identity
	caller         view.Identity
	resolver       EndpointService
	sessionFactory CommLayer

	sessionsMu         sync.Mutex
	sessions           map[string]view.Session
	errorCallbackFuncs []func()
}

func NewContextForInitiator(
	contextID string,
	goCtx context.Context,
	sp ServiceProvider,
	sessionFactory CommLayer,
	resolver EndpointService,
	party view.Identity,
	initiator view.View,
) (*ctx, error) {
	if len(contextID) == 0 {
		contextID = comm.GenerateUUID()
	}
	c, err := NewContext(goCtx, sp, contextID, sessionFactory, resolver, party, nil, nil)
	if err != nil {
		return nil, err
	}
	c.initiator = initiator
	return c, nil
}

func NewContext(
	goCtx context.Context,
	sp ServiceProvider,
	contextID string,
	sessionFactory CommLayer,
	resolver EndpointService,
	party view.Identity,
	session view.Session,
	caller view.Identity,
) (*ctx, error) {
	if goCtx == nil {
		goCtx = context.Background()
	}
	c := &ctx{
		context:        goCtx,
		id:             contextID,
		resolver:       resolver,
		sessionFactory: sessionFactory,
		session:        session,
		me:             party,
		caller:         caller,
		sp:             sp,
		sessions:       map[string]view.Session{},
	}
	if session != nil {
		// register the default session
		c.sessions[sessionKey(session.Info().CallerViewID, party)] = session
	}
	return c, nil
}

func (c *ctx) ID() string {
	return c.id
}

func (c *ctx) Initiator() view.View {
	return c.initiator
}

func (c *ctx) RunView(v view.View, opts ...view.RunViewOption) (res interface{}, err error) {
	return runViewOn(v, opts, c)
}

func (c *ctx) Me() view.Identity {
	return c.me
}

func (c *ctx) IsMe(id view.Identity) bool {
	return c.me.Equal(id)
}

func (c *ctx) Caller() view.Identity {
	return c.caller
}

func (c *ctx) GetSession(caller view.View, party view.Identity) (view.Session, error) {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	id := GetIdentifier(caller)
	if s, ok := c.sessions[sessionKey(id, party)]; ok {
		logger.Debugf("[%s] reusing session [%s:%s]", c.me, id, party)
		return s, nil
	}
	if caller == nil {
		return nil, errors.Errorf("a session should already exist, passed nil view")
	}

	endpoint, err := c.resolver.Endpoint(party)
	if err != nil {
		return nil, errors.Wrapf(err, "failed resolving endpoint for [%s]", party)
	}
	s, err := c.sessionFactory.NewSession(id, c.id, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.sessions[sessionKey(id, party)] = s
	return s, nil
}

func (c *ctx) GetSessionByID(id string, party view.Identity) (view.Session, error) {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	key := sessionKey(id, party)
	if s, ok := c.sessions[key]; ok {
		return s, nil
	}
	endpoint, err := c.resolver.Endpoint(party)
	if err != nil {
		return nil, errors.Wrapf(err, "failed resolving endpoint for [%s]", party)
	}
	s, err := c.sessionFactory.NewSessionWithID(id, c.id, endpoint, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	c.sessions[key] = s
	return s, nil
}

func (c *ctx) Session() view.Session {
	return c.session
}

func (c *ctx) ResetSessions() error {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	c.sessions = map[string]view.Session{}
	return nil
}

func (c *ctx) PutService(service interface{}) error {
	return c.sp.RegisterService(service)
}

func (c *ctx) GetService(v interface{}) (interface{}, error) {
	return c.sp.GetService(v)
}

func (c *ctx) OnError(callback func()) {
	c.errorCallbackFuncs = append(c.errorCallbackFuncs, callback)
}

func (c *ctx) Context() context.Context {
	return c.context
}

func (c *ctx) Dispose() {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	if c.session != nil {
		c.sessionFactory.DeleteSessions(c.context, c.session.Info().ID)
	}
	for _, s := range c.sessions {
		c.sessionFactory.DeleteSessions(c.context, s.Info().ID)
	}
	c.sessions = map[string]view.Session{}
}

func (c *ctx) PutSession(caller view.View, party view.Identity, session view.Session) error {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	c.sessions[sessionKey(GetIdentifier(caller), party)] = session
	return nil
}

func (c *ctx) cleanup() {
	logger.Debugf("cleaning up context [%s][%d]", c.ID(), len(c.errorCallbackFuncs))
	for _, callbackFunc := range c.errorCallbackFuncs {
		c.safeInvoke(callbackFunc)
	}
}

func (c *ctx) safeInvoke(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("callback panicked [%s]", r)
		}
	}()
	f()
}

func sessionKey(viewID string, party view.Identity) string {
	return viewID + ":" + party.UniqueID()
}

func runViewOn(v view.View, opts []view.RunViewOption, c localContext) (res interface{}, err error) {
	options, err := view.CompileRunViewOptions(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed compiling options")
	}
	var initiator view.View
	if options.AsInitiator {
		initiator = v
	}

	var cc localContext
	switch {
	case options.SameContext:
		cc = c
	case options.AsInitiator:
		// a responder keeps its incoming session as the sub-protocol's
		// default session, an initiator chaining a sub-protocol opens
		// fresh ones
		childCtx := &childContext{parentContext: c, initiator: initiator}
		if contextSession := c.Session(); contextSession != nil {
			if err := childCtx.PutSession(initiator, contextSession.Info().Caller, contextSession); err != nil {
				return nil, errors.Wrapf(err, "failed registering default session for [%s]", GetIdentifier(initiator))
			}
		}
		cc = childCtx
	default:
		cc = &childContext{parentContext: c, session: options.Session, initiator: initiator}
	}

	defer func() {
		if r := recover(); r != nil {
			cc.cleanup()
			res = nil

			logger.Errorf("caught panic while running view [%v][%s]", r, debug.Stack())

			switch e := r.(type) {
			case error:
				err = errors.WithMessage(e, "caught panic")
			case string:
				err = errors.New(e)
			default:
				err = errors.Errorf("caught panic [%v]", e)
			}
		}
	}()

	if v == nil && options.Call == nil {
		return nil, errors.Errorf("no view passed")
	}
	if options.Call != nil {
		res, err = options.Call(cc)
	} else {
		res, err = v.Call(cc)
	}
	if err != nil {
		cc.cleanup()
		return nil, err
	}
	return res, err
}
