package domain

import "time"

// Observation is one subscription state as seen in the current snapshot,
// with the billed amount already normalized to monthly cadence.
type Observation struct {
	SubscriptionID string
	Status         string
	MRRAmount      string
	StartDate      time.Time
	EndDate        time.Time
}

// TransitionKind classifies an observation against recorded history.
type TransitionKind int

const (
	// TransitionUnchanged means the state is already recorded; no fact is
	// appended. This is the idempotency guarantee under repeated
	// full-snapshot runs.
	TransitionUnchanged TransitionKind = iota
	// TransitionNew means the subscription has no recorded history.
	TransitionNew
	// TransitionChanged means status or MRR moved since the last fact.
	TransitionChanged
)

// Transition is the derived outcome for one observation.
type Transition struct {
	Kind          TransitionKind
	EffectiveDate time.Time
	ChurnFlag     bool
	IsNewMRRFlag  bool
}

// Derive compares an observation with the subscription's most recent fact
// row. prior is nil when the subscription has never been recorded.
// observedAt is the run's observation time, used to date state changes
// that carry no explicit effective date.
func Derive(prior *Fact, obs Observation, observedAt time.Time) Transition {
	if prior == nil {
		return Transition{
			Kind:          TransitionNew,
			EffectiveDate: obs.StartDate,
			ChurnFlag:     false,
			IsNewMRRFlag:  true,
		}
	}

	if prior.Status == obs.Status && prior.MRRAmount == obs.MRRAmount {
		return Transition{Kind: TransitionUnchanged}
	}

	effective := observedAt
	if IsTerminal(obs.Status) && !obs.EndDate.IsZero() {
		effective = obs.EndDate
	}

	return Transition{
		Kind:          TransitionChanged,
		EffectiveDate: effective,
		ChurnFlag:     IsTerminal(obs.Status),
		// a reactivation counts as new MRR
		IsNewMRRFlag: IsTerminal(prior.Status) && obs.Status == StatusActive,
	}
}
