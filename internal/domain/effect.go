package domain

// EffectKind distinguishes side effects produced by a state transition.
type EffectKind string

const (
	EffectNotify EffectKind = "notify"
	EffectAudit  EffectKind = "audit"
)

// Effect is a side effect returned as data by the pure transition functions.
// Audit effects are written inside the workflow transaction; notify effects
// are dispatched after commit.
type Effect struct {
	Kind     EffectKind
	Template string // notify
	Action   string // audit
}

func Notify(template string) Effect {
	return Effect{Kind: EffectNotify, Template: template}
}

func Audit(action string) Effect {
	return Effect{Kind: EffectAudit, Action: action}
}

// FilterEffects returns the effects of the given kind, preserving order.
func FilterEffects(effects []Effect, kind EffectKind) []Effect {
	var out []Effect
	for _, e := range effects {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
