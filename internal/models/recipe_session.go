package models

import (
	"time"

	"github.com/lib/pq"
)

// RecipeSource records how a recipe was acquired.
type RecipeSource string

// RecipeSource enum values.
const (
	RecipeSourceName  RecipeSource = "name"
	RecipeSourceVideo RecipeSource = "video"
)

// RecipeSession is one acquired recipe. Voice sessions are seeded from it,
// either by explicit session ID or by taking the most recently saved one.
type RecipeSession struct {
	ID               string         `gorm:"primaryKey;type:varchar(36)" json:"session_id"`
	MenuName         string         `json:"menu_name,omitempty"`
	Source           RecipeSource   `gorm:"type:text" json:"source"`
	SourceURL        string         `json:"source_url,omitempty"`
	Text             string         `gorm:"type:text" json:"recipe"`
	Ingredients      pq.StringArray `gorm:"type:text[]" json:"ingredients"`
	Steps            pq.StringArray `gorm:"type:text[]" json:"steps"`
	EstimatedMinutes int            `json:"estimated_time"`
	ArchiveURL       string         `json:"archive_url,omitempty"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
}
