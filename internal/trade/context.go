package trade

// Context is the guard-readable snapshot attached to a trade. The kernel never
// mutates it during guard evaluation; external collaborators change it through
// explicit context-update requests which the engine applies under the trade
// lock and records as context_updated events.
type Context struct {
	// Flags holds boolean preconditions keyed by flag name
	// (e.g. "escrow_funded", "customs_docs_uploaded").
	Flags map[string]bool `json:"flags,omitempty"`

	// EscrowBalanceMinor mirrors the escrow account balance in minor units,
	// written by the escrow signal source.
	EscrowBalanceMinor int64 `json:"escrow_balance_minor,omitempty"`

	// ComplianceVerdict is the opaque verdict from the compliance case:
	// "" (no case), "clear", or "hold". Its internal case lifecycle is not
	// modeled here.
	ComplianceVerdict string `json:"compliance_verdict,omitempty"`
}

// Flag reports whether the named flag is set.
func (c Context) Flag(name string) bool {
	return c.Flags[name]
}

// Clone deep-copies the context.
func (c Context) Clone() Context {
	cp := c
	if c.Flags != nil {
		cp.Flags = make(map[string]bool, len(c.Flags))
		for k, v := range c.Flags {
			cp.Flags[k] = v
		}
	}
	return cp
}

// ContextUpdate is a partial update from an external signal source. Nil
// pointer fields are left untouched; flags merge key-wise.
type ContextUpdate struct {
	Flags              map[string]bool `json:"flags,omitempty"`
	EscrowBalanceMinor *int64          `json:"escrow_balance_minor,omitempty"`
	ComplianceVerdict  *string         `json:"compliance_verdict,omitempty"`
}

// IsEmpty reports whether the update carries no changes.
func (u ContextUpdate) IsEmpty() bool {
	return len(u.Flags) == 0 && u.EscrowBalanceMinor == nil && u.ComplianceVerdict == nil
}

// Apply merges the update into a copy of ctx and returns it.
func (u ContextUpdate) Apply(ctx Context) Context {
	next := ctx.Clone()
	if len(u.Flags) > 0 && next.Flags == nil {
		next.Flags = make(map[string]bool, len(u.Flags))
	}
	for k, v := range u.Flags {
		next.Flags[k] = v
	}
	if u.EscrowBalanceMinor != nil {
		next.EscrowBalanceMinor = *u.EscrowBalanceMinor
	}
	if u.ComplianceVerdict != nil {
		next.ComplianceVerdict = *u.ComplianceVerdict
	}
	return next
}
