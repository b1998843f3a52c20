/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// childContext is a view context with a parent.
// It allows the developer to override session and initiator.
// It also supports error callbacks.
type childContext struct {
	parentContext localContext

	session            view.Session
	initiator          view.View
	errorCallbackFuncs []func()
}

// NewChildContextFromParent return a new child context from the given parent
func NewChildContextFromParent(parentContext localContext) disposableContext {
	return &childContext{parentContext: parentContext}
}

func (w *childContext) GetService(v interface{}) (interface{}, error) {
	return w.parentContext.GetService(v)
}

func (w *childContext) PutService(v interface{}) error {
	mutableContext, ok := w.parentContext.(view.MutableContext)
	if ok {
		return mutableContext.PutService(v)
	}
	return nil
}

func (w *childContext) ID() string {
	return w.parentContext.ID()
}

func (w *childContext) Me() view.Identity {
	return w.parentContext.Me()
}

func (w *childContext) IsMe(id view.Identity) bool {
	return w.parentContext.IsMe(id)
}

func (w *childContext) GetSession(caller view.View, party view.Identity) (view.Session, error) {
	return w.parentContext.GetSession(caller, party)
}

func (w *childContext) GetSessionByID(id string, party view.Identity) (view.Session, error) {
	return w.parentContext.GetSessionByID(id, party)
}

func (w *childContext) Context() context.Context {
	return w.parentContext.Context()
}

func (w *childContext) Session() view.Session {
	if w.session == nil {
		return w.parentContext.Session()
	}
	return w.session
}

func (w *childContext) ResetSessions() error {
	mutableContext, ok := w.parentContext.(view.MutableContext)
	if ok {
		return mutableContext.ResetSessions()
	}
	return nil
}

func (w *childContext) Initiator() view.View {
	if w.initiator == nil {
		return w.parentContext.Initiator()
	}
	return w.initiator
}

func (w *childContext) OnError(f func()) {
	w.errorCallbackFuncs = append(w.errorCallbackFuncs, f)
}

func (w *childContext) RunView(v view.View, opts ...view.RunViewOption) (res interface{}, err error) {
	return runViewOn(v, opts, w)
}

func (w *childContext) Dispose() {
	if w.parentContext != nil {
		w.parentContext.Dispose()
	}
}

func (w *childContext) PutSession(caller view.View, party view.Identity, session view.Session) error {
	return w.parentContext.PutSession(caller, party, session)
}

func (w *childContext) cleanup() {
	logger.Debugf("cleaning up child context [%s][%d]", w.ID(), len(w.errorCallbackFuncs))
	for _, callbackFunc := range w.errorCallbackFuncs {
		w.safeInvoke(callbackFunc)
	}
}

func (w *childContext) safeInvoke(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("callback panicked [%s]", r)
		}
	}()
	f()
}
