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


package compile

import (
	"fmt"

	"github.com/poiesic/loom/core"
)

// NodeConfigError reports that one node could not be compiled: bad
// parameters, an unresolved credential reference, or a failed backend
// connection. It wraps the underlying cause, so callers can test for
// provider.ErrCredentialsNotFound or *provider.ConnectionError with the
// errors package.
type NodeConfigError struct {
	Node core.NodeID
	Err  error
}

func (e *NodeConfigError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeConfigError) Unwrap() error {
	return e.Err
}

func newNodeConfigError(node core.NodeID, err error) error {
	if err == nil {
		return nil
	}
	return &NodeConfigError{Node: node, Err: err}
}
