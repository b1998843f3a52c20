/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"time"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// ReadMessageWithTimeout reads the next message from the passed session,
// failing after the passed duration.
func ReadMessageWithTimeout(session Session, d time.Duration) ([]byte, error) {
	ch := session.Receive()
	select {
	case msg := <-ch:
		if msg == nil {
			return nil, errors.New("session closed")
		}
		if msg.Status == view.ERROR {
			return nil, errors.Errorf("received error from remote [%s]", string(msg.Payload))
		}
		return msg.Payload, nil
	case <-time.After(d):
		return nil, errors.New("time out reached")
	}
}

// ReadFirstMessage returns the default session of the passed context together
// with the first message received on it.
func ReadFirstMessage(context view.Context) (Session, []byte, error) {
	session := context.Session()
	payload, err := ReadMessageWithTimeout(session, 30*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return session, payload, nil
}
