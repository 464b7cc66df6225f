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
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the engine's execution parameters.
type Config struct {
	// MaxConcurrentRuns bounds how many runs may execute at once.
	// Submissions beyond the bound fail with ErrTooManyRuns.
	MaxConcurrentRuns int `validate:"gte=1"`

	// DefaultTimeout caps the wall-clock duration of a run. Zero means
	// no engine-imposed deadline.
	DefaultTimeout time.Duration `validate:"gte=0"`

	// MaxRetries is how many times a failed batch operation is retried.
	// A node gets 1+MaxRetries attempts per operation.
	MaxRetries int `validate:"gte=0"`

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration `validate:"gte=0"`

	// QueueCapacity is the buffer size of each wire's channel. Senders
	// block once a wire holds this many undelivered batches.
	QueueCapacity int `validate:"gte=1"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentRuns: 4,
		DefaultTimeout:    10 * time.Minute,
		MaxRetries:        2,
		RetryDelay:        500 * time.Millisecond,
		QueueCapacity:     8,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	return nil
}
