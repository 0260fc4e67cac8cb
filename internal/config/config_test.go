package config

import "testing"

func TestValidateConfigRejectsBadLevelName(t *testing.T) {
	cfg := &Config{Default: DefaultConfig{Levels: []string{"NOTALEVEL"}}}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for unrecognized level name")
	}
}

func TestValidateConfigRejectsMisorderedDurationThresholds(t *testing.T) {
	cfg := &Config{
		Highlighting: HighlightingConfig{
			Duration: DurationThresholdsConfig{WarnMS: 500, SlowMS: 100, CriticalMS: 1000},
		},
	}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for misordered duration thresholds")
	}
}

func TestValidateConfigRejectsBadQuietHours(t *testing.T) {
	cfg := &Config{Notifications: NotificationsConfig{QuietHours: "not-a-range"}}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for malformed quiet hours")
	}
}

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	cfg := &Config{
		Default:      DefaultConfig{Levels: []string{"WARNING+"}},
		Highlighting: HighlightingConfig{Duration: DurationThresholdsConfig{WarnMS: 100, SlowMS: 1000, CriticalMS: 5000}},
		Notifications: NotificationsConfig{
			Enabled: true, Levels: []string{"ERROR"}, QuietHours: "22:00-06:00",
		},
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestDefaultConfigToLevelSet(t *testing.T) {
	d := DefaultConfig{Levels: []string{"WARNING+"}}
	set, err := d.ToLevelSet()
	if err != nil {
		t.Fatal(err)
	}
	if set == nil {
		t.Fatal("expected non-nil level set")
	}
}

func TestNotificationsConfigToNotifyConfig(t *testing.T) {
	n := NotificationsConfig{
		Enabled:     true,
		Levels:      []string{"ERROR", "FATAL"},
		Patterns:    []string{"/deadlock/i"},
		ErrorRate:   10,
		SlowQueryMS: 500,
		QuietHours:  "23:00-07:00",
	}
	nc, err := n.ToNotifyConfig()
	if err != nil {
		t.Fatal(err)
	}
	if nc.LevelRule == nil || nc.ErrorRate == nil || nc.SlowQuery == nil || nc.QuietHours == nil {
		t.Fatal("expected all rule kinds to be populated")
	}
	if len(nc.PatternRule) != 1 {
		t.Fatalf("expected 1 compiled pattern rule, got %d", len(nc.PatternRule))
	}
}
