// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package engine

import (
	"errors"
	"fmt"

	"github.com/poiesic/loom/core"
)

var (
	// ErrTooManyRuns indicates the engine is already executing its
	// maximum number of concurrent runs. The submission was rejected, not
	// queued; callers resubmit if they want to wait.
	ErrTooManyRuns = errors.New("too many concurrent runs")

	// ErrInvalidMaxAttempts indicates a retry was requested with a
	// non-positive attempt budget.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)

// NodeFailedError reports that one node exhausted its retries during a
// run. It wraps the last attempt's error.
type NodeFailedError struct {
	Node core.NodeID
	Err  error
}

func (e *NodeFailedError) Error() string {
	return fmt.Sprintf("node %s failed: %v", e.Node, e.Err)
}

func (e *NodeFailedError) Unwrap() error {
	return e.Err
}
