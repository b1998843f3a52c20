/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assert

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// EventuallyWithRetry polls f, sleeping with doubling backoff between
// attempts, and fails the test if it never returns nil within the given
// number of attempts.
func EventuallyWithRetry(t *testing.T, attempts int, sleep time.Duration, f func() error, msgAndArgs ...interface{}) {
	assert.NoError(t, retry(attempts, sleep, f), msgAndArgs...)
}

func retry(attempts int, sleep time.Duration, f func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(sleep)
			sleep *= 2
		}
		if err = f(); err == nil {
			return nil
		}
	}
	return errors.Wrapf(err, "still failing after %d attempts", attempts)
}
