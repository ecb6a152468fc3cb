// Package workstats holds the additive counters produced by line classification.
package workstats

// Kind identifies the classification assigned to a single changed line.
type Kind int

const (
	// KindNewWork is a freshly added line.
	KindNewWork Kind = iota
	// KindLegacyRefactor is a change to code with no recent attribution.
	KindLegacyRefactor
	// KindChurn is a change to code the same author wrote recently.
	KindChurn
	// KindHelpOthers is a change to code another author wrote recently.
	KindHelpOthers
	// KindOther covers everything else, e.g. pure deletions.
	KindOther
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNewWork:
		return "new_work"
	case KindLegacyRefactor:
		return "legacy_refactor"
	case KindChurn:
		return "churn"
	case KindHelpOthers:
		return "help_others"
	default:
		return "other"
	}
}

// Impact multipliers per unit of line work.
const (
	legacyRefactorValue = 4
	helpOthersValue     = 2
	newWorkValue        = 1
)

// WorkStats counts classified lines. The zero value is the additive identity.
type WorkStats struct {
	NewWork        uint64 `json:"new_work"        yaml:"new_work"`
	LegacyRefactor uint64 `json:"legacy_refactor" yaml:"legacy_refactor"`
	Churn          uint64 `json:"churn"           yaml:"churn"`
	HelpOthers     uint64 `json:"help_others"     yaml:"help_others"`
	Other          uint64 `json:"other"           yaml:"other"`
	Impact         uint64 `json:"impact"          yaml:"impact"`
}

// Unit returns stats with exactly one line counted under kind.
func Unit(kind Kind) WorkStats {
	var ws WorkStats

	switch kind {
	case KindNewWork:
		ws.NewWork = 1
	case KindLegacyRefactor:
		ws.LegacyRefactor = 1
	case KindChurn:
		ws.Churn = 1
	case KindHelpOthers:
		ws.HelpOthers = 1
	case KindOther:
		ws.Other = 1
	}

	return ws
}

// Add returns the field-wise sum of ws and other.
func (ws WorkStats) Add(other WorkStats) WorkStats {
	return WorkStats{
		NewWork:        ws.NewWork + other.NewWork,
		LegacyRefactor: ws.LegacyRefactor + other.LegacyRefactor,
		Churn:          ws.Churn + other.Churn,
		HelpOthers:     ws.HelpOthers + other.HelpOthers,
		Other:          ws.Other + other.Other,
		Impact:         ws.Impact + other.Impact,
	}
}

// Lines returns the number of classified lines, ignoring impact.
func (ws WorkStats) Lines() uint64 {
	return ws.NewWork + ws.LegacyRefactor + ws.Churn + ws.HelpOthers + ws.Other
}

// LineValue weighs line work before the sub-linear impact scaling.
// Churn and other lines carry no value.
func (ws WorkStats) LineValue() uint64 {
	return ws.LegacyRefactor*legacyRefactorValue + ws.HelpOthers*helpOthersValue + ws.NewWork*newWorkValue
}
