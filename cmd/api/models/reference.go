package models

import (
	"time"

	"github.com/genomeai/platform/common/validation"
)

// GenomeBuild is the assembly a reference set targets
type GenomeBuild string

const (
	BuildGRCh38 GenomeBuild = "GRCh38"
	BuildGRCh37 GenomeBuild = "GRCh37"
)

// Valid reports whether b is a supported build
func (b GenomeBuild) Valid() bool {
	return b == BuildGRCh38 || b == BuildGRCh37
}

// ReferenceSet is a named bundle of reference genome files.
// IsComplete is derived from Components on every write.
// Maps to: reference_sets table
type ReferenceSet struct {
	ID          string                          `db:"id" json:"id"`
	Name        string                          `db:"name" json:"name"`
	GenomeBuild GenomeBuild                     `db:"genome_build" json:"genome_build"`
	Components  []validation.ReferenceComponent `db:"components" json:"components"`
	IsComplete  bool                            `db:"is_complete" json:"is_complete"`
	CreatedAt   time.Time                       `db:"created_at" json:"created_at"`
}
