package domain

// TallyScale is the fixed-point scale of approvals, scores and ChildsVote.
const TallyScale int64 = 1_000_000

// InvalidPolicy controls how arguments invalidated by arbitration affect
// their parent's ChildsVote.
type InvalidPolicy string

const (
	InvalidIgnore   InvalidPolicy = "ignore"
	InvalidPenalize InvalidPolicy = "penalize"
)

func ValidInvalidPolicy(p string) bool {
	switch InvalidPolicy(p) {
	case InvalidIgnore, InvalidPenalize:
		return true
	}
	return false
}

// TallyPolicy is the combination rule used to fold child markets into
// their parent. ChildWeight is expressed in TallyScale units: 0 means an
// argument's score is its own market approval only, TallyScale means it is
// decided by its children only.
type TallyPolicy struct {
	ChildWeight int64         `toml:"child_weight" json:"child_weight"`
	Invalid     InvalidPolicy `toml:"invalid" json:"invalid"`
}

func DefaultTallyPolicy() TallyPolicy {
	return TallyPolicy{
		ChildWeight: TallyScale / 2,
		Invalid:     InvalidIgnore,
	}
}

type Verdict string

const (
	VerdictSupported Verdict = "supported"
	VerdictOpposed   Verdict = "opposed"
	VerdictUndecided Verdict = "undecided"
)

func VerdictOf(childsVote int64) Verdict {
	switch {
	case childsVote > 0:
		return VerdictSupported
	case childsVote < 0:
		return VerdictOpposed
	default:
		return VerdictUndecided
	}
}

// ArgumentScore is the tally output for one argument.
type ArgumentScore struct {
	ArgumentID uint64 `json:"argument_id"`
	Approval   int64  `json:"approval"`
	ChildsVote int64  `json:"childs_vote"`
	Score      int64  `json:"score"`
	Counted    bool   `json:"counted"`
}

// DebateResult is the aggregate verdict of a finished debate.
type DebateResult struct {
	DebateID   uint64          `json:"debate_id"`
	Verdict    Verdict         `json:"verdict"`
	ChildsVote int64           `json:"childs_vote"`
	Policy     TallyPolicy     `json:"policy"`
	Scores     []ArgumentScore `json:"scores"`
}
