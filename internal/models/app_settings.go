package models

import "time"

type AppSettings struct {
	ID                        uint       `gorm:"primaryKey"` // single-row table (ID=1)
	Version                   int        `gorm:"not null;default:1"`
	Theme                     string     `gorm:"not null;default:system"` // "light" | "dark" | "system"
	Locale                    string     `gorm:"not null"`
	DefaultModelKey           string     `gorm:"size:255"`
	DefaultSequential         bool       `gorm:"not null;default:false"`
	DefaultStrictness         Strictness `gorm:"size:16;not null;default:normal"`
	DefaultAccessibilityFocus bool       `gorm:"not null;default:true"`
	UpdatedAt                 time.Time
}

// DefaultOptions returns the analysis options new sessions start with.
func (s *AppSettings) DefaultOptions() AnalysisOptions {
	opts := AnalysisOptions{
		Sequential:         s.DefaultSequential,
		Strictness:         s.DefaultStrictness,
		AccessibilityFocus: s.DefaultAccessibilityFocus,
	}
	if !opts.Strictness.Valid() {
		opts.Strictness = StrictnessNormal
	}
	return opts
}
