package models

// Level is the ecosystem level label derived from the achievement count. It
// is recomputed on every counts update and never stored independently of the
// derivation rule.
type Level string

const (
	LevelNewcomer     Level = "Newcomer"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
	LevelExpert       Level = "Expert"
	LevelMaster       Level = "Master"
)

// LevelForAchievements maps an achievement count onto its level. The
// thresholds are a consumer-facing contract; downstream metadata readers key
// off these exact labels.
func LevelForAchievements(count uint64) Level {
	switch {
	case count >= 20:
		return LevelMaster
	case count >= 10:
		return LevelExpert
	case count >= 5:
		return LevelAdvanced
	case count >= 2:
		return LevelIntermediate
	default:
		return LevelNewcomer
	}
}

// String returns the label.
func (l Level) String() string {
	return string(l)
}
