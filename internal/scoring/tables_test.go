package scoring

import "testing"

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestLevelMultiplier_HalfOpenBrackets(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		level int
		want  float64
	}{
		{level: -1, want: 1.0},
		{level: 0, want: 1.0},
		{level: 9, want: 1.0},
		{level: 10, want: 1.1},
		{level: 19, want: 1.1},
		{level: 20, want: 1.2},
		{level: 39, want: 1.3},
		{level: 40, want: 1.4},
		{level: 49, want: 1.4},
		{level: 50, want: 1.5},
		{level: 99, want: 1.5},
		{level: 100, want: 1.5},
		{level: 250, want: 1.5},
	}
	for _, tt := range tests {
		if got := cfg.levelMultiplier(tt.level); got != tt.want {
			t.Errorf("levelMultiplier(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestValidate_RejectsOverlappingBrackets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LevelBrackets = []LevelBracket{
		{Min: 0, Max: 20, Multiplier: 1.0},
		{Min: 10, Max: 30, Multiplier: 1.2},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for overlapping brackets")
	}
}

func TestValidate_RejectsEmptyBracket(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LevelBrackets = []LevelBracket{{Min: 10, Max: 10, Multiplier: 1.0}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for min == max")
	}
}

func TestValidate_RejectsDescendingPriceTiers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PriceTiers = []PriceTier{
		{Below: 0.9, Points: 10},
		{Below: 0.7, Points: 30},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for descending tiers")
	}
}

func TestValidate_RejectsMinScoreAboveMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinScore = 120
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for min_score > max_score")
	}
}

func TestLevelMultiplier_ClosedTopBracket(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LevelBrackets = []LevelBracket{
		{Min: 0, Max: 50, Multiplier: 1.0},
		{Min: 50, Max: 100, Multiplier: 2.0},
	}
	if got := cfg.levelMultiplier(100); got != 1.0 {
		t.Errorf("levelMultiplier(100) = %v, want 1.0 outside every bracket", got)
	}
}

func TestValidate_RejectsOpenEndedBracketBeforeLast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LevelBrackets = []LevelBracket{
		{Min: 0, Multiplier: 1.0},
		{Min: 50, Max: 100, Multiplier: 1.5},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for an open-ended bracket that is not last")
	}
}
