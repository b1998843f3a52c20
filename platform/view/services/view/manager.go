/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/services/comm"
	"github.com/P0ntiff/seclending-smart-client/platform/view/services/flogging"
	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

var logger = flogging.MustGetLogger("view-sdk.manager")

// ServiceProvider resolves services by type.
type ServiceProvider interface {
	GetService(v interface{}) (interface{}, error)
	RegisterService(service interface{}) error
}

// CommLayer creates and disposes communication sessions.
type CommLayer interface {
	NewSessionWithID(sessionID, contextID, endpoint string, pkid []byte, caller view.Identity, msg *view.Message) (view.Session, error)

	NewSession(caller string, contextID string, endpoint string, pkid []byte) (view.Session, error)

	MasterSession() (view.Session, error)

	DeleteSessions(ctx context.Context, sessionID string)
}

// EndpointService resolves identities to transport endpoints and back.
type EndpointService interface {
	GetIdentity(endpoint string) (view.Identity, error)
	Endpoint(party view.Identity) (string, error)
}

// Factory is used to create instances of the View interface
type Factory interface {
	// NewView returns an instance of the View interface built using the passed argument.
	NewView(in []byte) (view.View, error)
}

type viewEntry struct {
	View      view.View
	ID        view.Identity
	Initiator bool
}

type disposableContext interface {
	view.Context
	Dispose()
}

// Manager runs views: it creates contexts for initiators and dispatches
// incoming first-messages from the master session to registered responders.
type Manager struct {
	sp ServiceProvider

	commLayer       CommLayer
	endpointService EndpointService
	me              view.Identity

	ctx context.Context

	factoriesSync sync.RWMutex
	viewsSync     sync.RWMutex
	contextsSync  sync.RWMutex

	contexts   map[string]disposableContext
	views      map[string][]*viewEntry
	initiators map[string]string
	factories  map[string]Factory
}

func NewManager(sp ServiceProvider, commLayer CommLayer, endpointService EndpointService, me view.Identity) *Manager {
	return &Manager{
		sp:              sp,
		commLayer:       commLayer,
		endpointService: endpointService,
		me:              me,

		contexts:   map[string]disposableContext{},
		views:      map[string][]*viewEntry{},
		initiators: map[string]string{},
		factories:  map[string]Factory{},
	}
}

// GetManager returns the Manager registered in the passed context's service provider.
func GetManager(ctx view.Context) *Manager {
	s, err := ctx.GetService(reflect.TypeOf((*Manager)(nil)))
	if err != nil {
		panic(err)
	}
	return s.(*Manager)
}

func (cm *Manager) GetService(typ reflect.Type) (interface{}, error) {
	return cm.sp.GetService(typ)
}

func (cm *Manager) RegisterFactory(id string, factory Factory) error {
	logger.Debugf("register view factory [%s]", id)
	cm.factoriesSync.Lock()
	defer cm.factoriesSync.Unlock()
	cm.factories[id] = factory
	return nil
}

func (cm *Manager) NewView(id string, in []byte) (f view.View, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("new view triggered panic: %s\n%s\n", r, debug.Stack())
			err = errors.Errorf("failed creating view [%s]", r)
		}
	}()

	cm.factoriesSync.RLock()
	factory, ok := cm.factories[id]
	cm.factoriesSync.RUnlock()
	if !ok {
		return nil, errors.Errorf("no factory found for id [%s]", id)
	}
	return factory.NewView(in)
}

func (cm *Manager) RegisterResponder(responder view.View, initiatedBy interface{}) error {
	return cm.RegisterResponderWithIdentity(responder, nil, initiatedBy)
}

func (cm *Manager) RegisterResponderWithIdentity(responder view.View, id view.Identity, initiatedBy interface{}) error {
	switch t := initiatedBy.(type) {
	case view.View:
		cm.registerResponderWithIdentity(responder, id, GetIdentifier(t))
	case string:
		cm.registerResponderWithIdentity(responder, id, t)
	default:
		return errors.Errorf("initiatedBy must be a view or a string")
	}
	return nil
}

func (cm *Manager) GetResponder(initiatedBy interface{}) (view.View, error) {
	var initiatedByID string
	switch t := initiatedBy.(type) {
	case view.View:
		initiatedByID = GetIdentifier(t)
	case string:
		initiatedByID = t
	default:
		return nil, errors.Errorf("initiatedBy must be a view or a string")
	}

	cm.viewsSync.RLock()
	defer cm.viewsSync.RUnlock()

	responderID, ok := cm.initiators[initiatedByID]
	if !ok {
		return nil, errors.Errorf("responder not found for [%s]", initiatedByID)
	}
	entries := cm.views[responderID]
	if len(entries) == 0 {
		return nil, errors.Errorf("responder not found for [%s], initiator [%s]", responderID, initiatedByID)
	}
	return entries[0].View, nil
}

func (cm *Manager) registerResponderWithIdentity(responder view.View, id view.Identity, initiatedByID string) {
	cm.viewsSync.Lock()
	defer cm.viewsSync.Unlock()

	responderID := GetIdentifier(responder)
	logger.Debugf("registering responder [%s] for initiator [%s]", responderID, initiatedByID)

	cm.views[responderID] = append(cm.views[responderID], &viewEntry{View: responder, ID: id, Initiator: len(initiatedByID) == 0})
	if len(initiatedByID) != 0 {
		cm.initiators[initiatedByID] = responderID
	}
}

func (cm *Manager) Initiate(id string, ctx context.Context) (interface{}, error) {
	cm.viewsSync.RLock()
	responders := cm.views[id]
	var res *viewEntry
	for _, entry := range responders {
		if entry.Initiator {
			res = entry
			break
		}
	}
	cm.viewsSync.RUnlock()
	if res == nil {
		return nil, errors.Errorf("initiator not found for [%s]", id)
	}

	return cm.InitiateViewWithIdentity(res.View, cm.me, ctx)
}

func (cm *Manager) InitiateView(view view.View, ctx context.Context) (interface{}, error) {
	return cm.InitiateViewWithIdentity(view, cm.me, ctx)
}

func (cm *Manager) InitiateViewWithIdentity(v view.View, id view.Identity, goCtx context.Context) (interface{}, error) {
	if goCtx == nil {
		goCtx = cm.getCurrentContext()
	}
	viewContext, err := NewContextForInitiator(
		"",
		goCtx,
		cm.sp,
		cm.commLayer,
		cm.endpointService,
		id,
		v,
	)
	if err != nil {
		return nil, err
	}
	c := NewChildContextFromParent(viewContext)
	cm.contextsSync.Lock()
	cm.contexts[c.ID()] = c
	cm.contextsSync.Unlock()
	defer cm.deleteContext(id, c.ID())

	logger.Debugf("[%s] InitiateView [view:%s], [ContextID:%s]", id, GetIdentifier(v), c.ID())
	res, err := c.RunView(v)
	if err != nil {
		logger.Debugf("[%s] InitiateView [view:%s], [ContextID:%s] failed [%s]", id, GetIdentifier(v), c.ID(), err)
		return nil, err
	}
	logger.Debugf("[%s] InitiateView [view:%s], [ContextID:%s] terminated", id, GetIdentifier(v), c.ID())
	return res, nil
}

// Context returns a view.Context for a given contextID. If the context does not exist, an error is returned.
func (cm *Manager) Context(contextID string) (view.Context, error) {
	cm.contextsSync.RLock()
	defer cm.contextsSync.RUnlock()
	viewCtx, ok := cm.contexts[contextID]
	if !ok {
		return nil, errors.Errorf("context %s not found", contextID)
	}
	return viewCtx, nil
}

func (cm *Manager) GetIdentifier(f view.View) string {
	return GetIdentifier(f)
}

// Start listens for first-messages on the comm layer's master session and
// dispatches them to responders until the passed context is done.
func (cm *Manager) Start(ctx context.Context) {
	cm.setCurrentContext(ctx)

	session, err := cm.commLayer.MasterSession()
	if err != nil {
		return
	}
	ch := session.Receive()
	for {
		select {
		case msg := <-ch:
			go cm.callView(msg)
		case <-ctx.Done():
			logger.Debugf("received done signal, stop listening on the master session")
			return
		}
	}
}

// callView dispatches a first-message to the responder registered for the caller view.
func (cm *Manager) callView(msg *view.Message) {
	responder, err := cm.GetResponder(msg.Caller)
	if err != nil {
		// dropping message
		logger.Errorf("[%s] no responder exists for [%s]: [%s]", cm.me, msg.String(), err)
		return
	}

	if err := cm.respond(responder, cm.me, msg); err != nil {
		logger.Errorf("[%s] error during respond [%s]", cm.me, err)
	}
}

// respond executes a given responder view
func (cm *Manager) respond(responder view.View, id view.Identity, msg *view.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("respond triggered panic: %s\n%s\n", r, debug.Stack())
			err = errors.Errorf("failed responding [%s]", r)
		}
	}()

	viewCtx, isNew, err := cm.newContext(id, msg)
	if err != nil {
		return errors.WithMessagef(err, "failed getting context for [%s,%s]", msg.ContextID, id)
	}
	logger.Debugf("[%s] respond [from:%s], [sessionID:%s], [contextID:%s](%v)", id, msg.FromEndpoint, msg.SessionID, msg.ContextID, isNew)

	if isNew {
		defer cm.deleteContext(id, viewCtx.ID())
	}

	_, err = viewCtx.RunView(responder)
	if err != nil {
		logger.Debugf("[%s] respond failure [from:%s], [contextID:%s] [%s]", id, msg.FromEndpoint, msg.ContextID, err)
		// try to send the error back to the caller
		if err := viewCtx.Session().SendError([]byte(err.Error())); err != nil {
			logger.Errorf("failed sending error back [%s]", err)
		}
	}
	return nil
}

func (cm *Manager) newContext(id view.Identity, msg *view.Message) (view.Context, bool, error) {
	cm.contextsSync.Lock()
	defer cm.contextsSync.Unlock()

	caller, err := cm.endpointService.GetIdentity(msg.FromEndpoint)
	if err != nil {
		return nil, false, err
	}

	contextID := msg.ContextID
	if viewContext, ok := cm.contexts[contextID]; ok {
		logger.Debugf("[%s] reuse context [contextID:%s]", id, contextID)
		return viewContext, false, nil
	}

	backend, err := cm.commLayer.NewSessionWithID(msg.SessionID, contextID, msg.FromEndpoint, nil, caller, msg)
	if err != nil {
		return nil, false, err
	}

	newCtx, err := NewContext(
		cm.getCurrentContext(),
		cm.sp,
		contextID,
		cm.commLayer,
		cm.endpointService,
		id,
		backend,
		caller,
	)
	if err != nil {
		return nil, false, err
	}

	c := NewChildContextFromParent(newCtx)
	cm.contexts[contextID] = c
	return c, true, nil
}

func (cm *Manager) deleteContext(id view.Identity, contextID string) {
	cm.contextsSync.Lock()
	defer cm.contextsSync.Unlock()

	logger.Debugf("[%s] delete context [contextID:%s]", id, contextID)
	if viewCtx, ok := cm.contexts[contextID]; ok {
		viewCtx.Dispose()
		delete(cm.contexts, contextID)
	}
}

func (cm *Manager) getCurrentContext() context.Context {
	cm.contextsSync.RLock()
	ctx := cm.ctx
	cm.contextsSync.RUnlock()
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (cm *Manager) setCurrentContext(ctx context.Context) {
	cm.contextsSync.Lock()
	cm.ctx = ctx
	cm.contextsSync.Unlock()
}

// GetIdentifier returns the identifier of the passed view
func GetIdentifier(f view.View) string {
	if f == nil {
		return ""
	}
	t := reflect.TypeOf(f)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "/" + t.Name()
}

// GenerateUUID is re-exported for callers that already import this package.
func GenerateUUID() string {
	return comm.GenerateUUID()
}
