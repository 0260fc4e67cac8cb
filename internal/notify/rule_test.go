package notify

import (
	"testing"

	"github.com/willibrandon/pgtail/internal/record"
)

func TestAddRuleMergesLevelSets(t *testing.T) {
	var cfg Config
	cfg.AddRule(LevelRule(map[record.Level]bool{record.Error: true}))
	cfg.AddRule(LevelRule(map[record.Level]bool{record.Fatal: true, record.Panic: true}))

	if cfg.LevelRule == nil {
		t.Fatal("expected a level rule")
	}
	for _, lvl := range []record.Level{record.Error, record.Fatal, record.Panic} {
		if !cfg.LevelRule.Levels[lvl] {
			t.Errorf("expected level %v to survive the merge", lvl)
		}
	}
	if len(cfg.LevelRule.Levels) != 3 {
		t.Errorf("expected 3 merged levels, got %d", len(cfg.LevelRule.Levels))
	}
}

func TestAddRuleReplacesErrorRateAndSlowQuery(t *testing.T) {
	var cfg Config
	cfg.AddRule(ErrorRateRule(5))
	cfg.AddRule(ErrorRateRule(10))
	if cfg.ErrorRate == nil || cfg.ErrorRate.ThresholdPerMinute != 10 {
		t.Fatalf("expected the second ErrorRate rule to replace the first, got %+v", cfg.ErrorRate)
	}

	cfg.AddRule(SlowQueryRule(100))
	cfg.AddRule(SlowQueryRule(250))
	if cfg.SlowQuery == nil || cfg.SlowQuery.ThresholdMS != 250 {
		t.Fatalf("expected the second SlowQuery rule to replace the first, got %+v", cfg.SlowQuery)
	}
}

func TestAddRuleAppendsPatternRules(t *testing.T) {
	var cfg Config
	r1, err := CompilePatternToken("/deadlock/")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := CompilePatternToken("/timeout/i")
	if err != nil {
		t.Fatal(err)
	}
	cfg.AddRule(r1)
	cfg.AddRule(r2)
	if len(cfg.PatternRule) != 2 {
		t.Fatalf("expected 2 accumulated pattern rules, got %d", len(cfg.PatternRule))
	}
}
