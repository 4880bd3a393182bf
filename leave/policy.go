/*
policy.go - Policy resolution

PURPOSE:
  Finds the single LeavePolicy that governs one employee and one category.
  The priority chain is fixed; the first match wins:

    1. Employee-specific policy override for the category
    2. Default policy declared on the employee's employment agreement
    3. Legacy per-balance policy_id override (back-compatibility)
    4. Active default policy scoped to the employee's employment type
    5. Active default policy scoped 'any'
    6. Any active default policy for the category

  No match resolves to nil: "no entitlement" is a valid state, not an error.

SEE ALSO:
  - ledger.go: accrues against the resolved policy
  - request.go: reads AllowNegativeBalance from the resolved policy
*/
package leave

import "context"

// Resolver resolves the applicable policy for an employee and category.
type Resolver struct {
	Directory Directory
	Policies  PolicyStore
	Balances  BalanceStore
}

func NewResolver(dir Directory, policies PolicyStore, balances BalanceStore) *Resolver {
	return &Resolver{Directory: dir, Policies: policies, Balances: balances}
}

// Resolve walks the priority chain and returns the first applicable policy,
// or nil when the employee has no entitlement for the category.
func (r *Resolver) Resolve(ctx context.Context, emp *Employee, category Category) (*LeavePolicy, error) {
	if emp == nil {
		return nil, nil
	}

	// 1. Employee-specific override.
	if id, found := emp.PolicyOverrides[category]; found && id != "" {
		if p, err := r.lookup(ctx, id); err != nil {
			return nil, err
		} else if p != nil {
			return p, nil
		}
	}

	// 2. Agreement default.
	if emp.AgreementID != "" {
		agreement, err := r.Directory.Agreement(ctx, emp.AgreementID)
		if err != nil && !IsNotFound(err) {
			return nil, err
		}
		if agreement != nil {
			if id, found := agreement.DefaultPolicyIDs[category]; found && id != "" {
				if p, err := r.lookup(ctx, id); err != nil {
					return nil, err
				} else if p != nil {
					return p, nil
				}
			}
		}
	}

	// 3. Legacy per-balance override.
	balance, err := r.Balances.Balance(ctx, emp.ID, category)
	if err != nil {
		return nil, err
	}
	if balance != nil && balance.PolicyID != "" {
		if p, err := r.lookup(ctx, balance.PolicyID); err != nil {
			return nil, err
		} else if p != nil {
			return p, nil
		}
	}

	// 4-6. Active defaults, narrowest scope first.
	active, err := r.Policies.ActivePolicies(ctx)
	if err != nil {
		return nil, err
	}

	var scopeAny, anyScope *LeavePolicy
	for i := range active {
		p := &active[i]
		if !p.IsDefault || p.Category != category {
			continue
		}
		switch {
		case p.EmploymentScope == emp.EmploymentType:
			return p, nil
		case p.EmploymentScope == ScopeAny && scopeAny == nil:
			scopeAny = p
		case anyScope == nil:
			anyScope = p
		}
	}
	if scopeAny != nil {
		return scopeAny, nil
	}
	return anyScope, nil
}

// lookup fetches a policy by id, treating not-found and inactive as no match
// so the chain can continue.
func (r *Resolver) lookup(ctx context.Context, id string) (*LeavePolicy, error) {
	p, err := r.Policies.Policy(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if p == nil || !p.IsActive {
		return nil, nil
	}
	return p, nil
}
