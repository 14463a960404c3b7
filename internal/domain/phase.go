package domain

type Phase uint8

const (
	PhaseUnitialized Phase = iota
	PhaseEditing
	PhaseVoting
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseVoting:
		return "voting"
	case PhaseFinished:
		return "finished"
	default:
		return "unitialized"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Deadlines are expressed in multiples of the debate's time unit.
const (
	EditingTimeUnits = 7
	VotingTimeUnits  = 10
)

// PhaseData is the lifecycle clock of a single debate.
type PhaseData struct {
	Current        Phase  `json:"current_phase"`
	TimeUnit       uint64 `json:"time_unit"`
	EditingEndTime uint64 `json:"editing_end_time"`
	VotingEndTime  uint64 `json:"voting_end_time"`
}

// NewPhaseData derives both deadlines once, at creation time.
func NewPhaseData(now, timeUnit uint64) PhaseData {
	return PhaseData{
		Current:        PhaseEditing,
		TimeUnit:       timeUnit,
		EditingEndTime: now + EditingTimeUnits*timeUnit,
		VotingEndTime:  now + VotingTimeUnits*timeUnit,
	}
}

// PhaseAt returns the phase that logical time justifies. It never returns
// a phase lower than the stored one.
func (p PhaseData) PhaseAt(now uint64) Phase {
	if p.Current == PhaseUnitialized {
		return PhaseUnitialized
	}

	var due Phase
	switch {
	case now >= p.VotingEndTime:
		due = PhaseFinished
	case now >= p.EditingEndTime:
		due = PhaseVoting
	default:
		due = PhaseEditing
	}

	if due < p.Current {
		return p.Current
	}
	return due
}
