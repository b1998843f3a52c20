/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assert

import (
	"fmt"

	"github.com/test-go/testify/assert"
)

// panicker turns testify failures into panics so a responder view aborts at
// its first failed check. The view runner recovers the panic into an error
// returned to the caller.
type panicker struct{}

func (p panicker) Errorf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// NoError checks that the passed error is nil, it panics otherwise
func NoError(err error, msgAndArgs ...interface{}) {
	assert.NoError(panicker{}, err, msgAndArgs...)
}

// Equal checks that actual equals expected, it panics otherwise
func Equal(expected, actual interface{}, msgAndArgs ...interface{}) {
	assert.Equal(panicker{}, expected, actual, msgAndArgs...)
}

// True checks that the passed value holds, it panics otherwise
func True(value bool, msgAndArgs ...interface{}) {
	assert.True(panicker{}, value, msgAndArgs...)
}

// NotEmpty checks that the passed object is not empty, it panics otherwise
func NotEmpty(o interface{}, msgAndArgs ...interface{}) {
	assert.NotEmpty(panicker{}, o, msgAndArgs...)
}
