package guardrail

// DefaultConfidenceThreshold gates catalog rules when the policy does not
// set its own threshold. Heuristic detectors ignore it.
const DefaultConfidenceThreshold float32 = 0.75

// Mode governs what happens when a scan comes back blocked: warn and pause
// modes surface the status for the caller to act on; only block mode turns
// a blocked result into an error.
type Mode int

const (
	ModeWarn Mode = iota + 1
	ModePause
	ModeBlock
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case ModeWarn:
		return "warn"
	case ModePause:
		return "pause"
	case ModeBlock:
		return "block"
	default:
		return "unspecified"
	}
}

// ParseMode maps a mode string to its enum value. Unknown strings degrade
// to ModeWarn, the least disruptive mode.
func ParseMode(s string) Mode {
	switch s {
	case "pause":
		return ModePause
	case "block":
		return ModeBlock
	default:
		return ModeWarn
	}
}

// Policy configures one guardrail instance. Step-level adjustments go
// through Merge; the base policy is never mutated.
type Policy struct {
	Enabled             bool
	Mode                Mode
	Categories          map[Category]bool // absent key = enabled
	ConfidenceThreshold float32
	AllowPatterns       []string
}

// DefaultPolicy returns the stock policy: enabled, block mode, all
// categories on, 0.75 threshold, no extra allow patterns.
func DefaultPolicy() *Policy {
	return &Policy{
		Enabled:             true,
		Mode:                ModeBlock,
		Categories:          map[Category]bool{},
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// CategoryEnabled reports whether a rule category is enabled. Categories
// default to enabled unless explicitly switched off.
func (p *Policy) CategoryEnabled(c Category) bool {
	if p.Categories == nil {
		return true
	}
	enabled, ok := p.Categories[c]
	if !ok {
		return true
	}
	return enabled
}

// Threshold returns the policy confidence threshold, falling back to the
// default when the configured value is out of [0,1].
func (p *Policy) Threshold() float32 {
	if p.ConfidenceThreshold <= 0 || p.ConfidenceThreshold > 1 {
		return DefaultConfidenceThreshold
	}
	return p.ConfidenceThreshold
}

// PolicyOverride is a partial policy for step-level merging. All pointer
// fields use nil to mean "keep the base value"; Categories is merged
// key-by-key; a non-nil AllowPatterns replaces the base list.
type PolicyOverride struct {
	Enabled             *bool
	Mode                *Mode
	Categories          map[Category]bool
	ConfidenceThreshold *float32
	AllowPatterns       []string
}

// Merge returns a new policy with the override applied. The base is never
// mutated; absent override fields retain base values.
func Merge(base *Policy, override *PolicyOverride) *Policy {
	if base == nil {
		base = DefaultPolicy()
	}

	merged := &Policy{
		Enabled:             base.Enabled,
		Mode:                base.Mode,
		ConfidenceThreshold: base.ConfidenceThreshold,
		AllowPatterns:       base.AllowPatterns,
		Categories:          make(map[Category]bool, len(base.Categories)),
	}
	for c, enabled := range base.Categories {
		merged.Categories[c] = enabled
	}

	if override == nil {
		return merged
	}
	if override.Enabled != nil {
		merged.Enabled = *override.Enabled
	}
	if override.Mode != nil {
		merged.Mode = *override.Mode
	}
	if override.ConfidenceThreshold != nil {
		merged.ConfidenceThreshold = *override.ConfidenceThreshold
	}
	if override.AllowPatterns != nil {
		merged.AllowPatterns = override.AllowPatterns
	}
	for c, enabled := range override.Categories {
		merged.Categories[c] = enabled
	}
	return merged
}
