/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package util contains utility classes for the graph storage.

GraphError

Models a graph related error. Low-level errors should be wrapped in a GraphError
before they are returned to a client. The Type of a GraphError can be checked
with errors.Is:

	ErrNotFound         - requested node, graph or page does not exist
	ErrCorruption       - stored data is malformed or an invariant is violated
	ErrCapacityExceeded - the configuration cannot hold the data
	ErrUnsupported      - the operation is not supported
*/
package util

import (
	"errors"
	"fmt"
)

/*
GraphError is a graph related error
*/
type GraphError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
NewGraphError returns a new graph error.
*/
func NewGraphError(geType error, detail string, args ...interface{}) *GraphError {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &GraphError{geType, detail}
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *GraphError) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Unwrap returns the type of this error.
*/
func (ge *GraphError) Unwrap() error {
	return ge.Type
}

/*
Graph storage related error types
*/
var (
	ErrOpening  = errors.New("Failed to open graph storage")
	ErrFlushing = errors.New("Failed to flush changes")
	ErrClosing  = errors.New("Failed to close graph storage")
	ErrReading  = errors.New("Could not read graph information")
	ErrWriting  = errors.New("Could not write graph information")
)

/*
Graph related error types
*/
var (
	ErrNotFound         = errors.New("Not found")
	ErrCorruption       = errors.New("Data corruption")
	ErrCapacityExceeded = errors.New("Capacity exceeded")
	ErrUnsupported      = errors.New("Unsupported operation")
	ErrInvalidData      = errors.New("Invalid data")
)
