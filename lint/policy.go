// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lint

import (
	"sync"

	"github.com/filterlint/filterlint/rules"
)

// Policy overrides a rule's default behavior for one run.
type Policy struct {
	// Severity replaces the rule's default severity. SeverityOff disables
	// the rule.
	Severity rules.Severity

	// Options is passed to the rule's run context.
	Options map[string]any
}

// PolicyRegistry maps rule names to policies.
//
// Thread Safety: Safe for concurrent use.
type PolicyRegistry struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewPolicyRegistry creates an empty policy registry.
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{policies: make(map[string]Policy)}
}

// Set stores the policy for a rule, replacing any previous one.
func (p *PolicyRegistry) Set(rule string, policy Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policies[rule] = policy
}

// Get returns the policy for a rule.
func (p *PolicyRegistry) Get(rule string) (Policy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	policy, ok := p.policies[rule]
	return policy, ok
}

// Effective resolves a rule's severity and options: the stored policy when
// one exists, the rule's own defaults otherwise.
func (p *PolicyRegistry) Effective(rule rules.Rule) (rules.Severity, map[string]any) {
	if policy, ok := p.Get(rule.Name()); ok {
		return policy.Severity, policy.Options
	}
	return rule.Meta().DefaultSeverity, nil
}
