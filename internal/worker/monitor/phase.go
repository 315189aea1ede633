package monitor

// Phase はオーケストレーターの状態。
// チェックサイクルは購読者ごとに Fetching → Scoring → Filtering → Notifying を繰り返し、
// 終了後に Idle へ戻る。クリーンアップは Idle → Cleaning → Idle。
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseScoring
	PhaseFiltering
	PhaseNotifying
	PhaseCleaning
)

var phaseNames = [...]string{
	PhaseIdle:      "idle",
	PhaseFetching:  "fetching",
	PhaseScoring:   "scoring",
	PhaseFiltering: "filtering",
	PhaseNotifying: "notifying",
	PhaseCleaning:  "cleaning",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText はJSON出力で名前を使うために実装する。
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
