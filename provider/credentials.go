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


package provider

import "fmt"

// Credentials holds the secret material needed to connect one backend.
// Each backend reads the fields it understands and ignores the rest.
// Credentials never appear inside a serialized definition.
type Credentials struct {
	APIKey             string            `json:"api_key,omitempty"`
	Token              string            `json:"token,omitempty"`
	Endpoint           string            `json:"endpoint,omitempty"`
	Region             string            `json:"region,omitempty"`
	AccessKeyID        string            `json:"access_key_id,omitempty"`
	SecretAccessKey    string            `json:"secret_access_key,omitempty"`
	AccountName        string            `json:"account_name,omitempty"`
	AccountKey         string            `json:"account_key,omitempty"`
	ServiceAccountJSON string            `json:"service_account_json,omitempty"`
	ConnectionString   string            `json:"connection_string,omitempty"`
	Username           string            `json:"username,omitempty"`
	Password           string            `json:"password,omitempty"`
	Extra              map[string]string `json:"extra,omitempty"`
}

// Registry maps opaque credential reference ids to Credentials. It is
// read-only after construction and safe to share by reference across
// concurrent compiles and runs.
type Registry struct {
	creds map[string]Credentials
}

// NewRegistry creates a registry from the given mapping. The map is
// copied; later mutation of the argument does not affect the registry.
func NewRegistry(creds map[string]Credentials) *Registry {
	copied := make(map[string]Credentials, len(creds))
	for ref, c := range creds {
		copied[ref] = c
	}
	return &Registry{creds: copied}
}

// Lookup resolves a credential reference id.
// Returns ErrCredentialsNotFound (wrapped with the reference) if absent.
func (r *Registry) Lookup(ref string) (Credentials, error) {
	c, ok := r.creds[ref]
	if !ok {
		return Credentials{}, fmt.Errorf("%w: %q", ErrCredentialsNotFound, ref)
	}
	return c, nil
}

// Len returns the number of registered credentials.
func (r *Registry) Len() int {
	return len(r.creds)
}
