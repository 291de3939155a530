package models

import (
	"strings"
	"time"
)

// DatasetType tags the file format behind a dataset URI
type DatasetType string

const (
	DatasetFASTQ   DatasetType = "FASTQ"
	DatasetFASTQGZ DatasetType = "FASTQ.GZ"
	DatasetBAM     DatasetType = "BAM"
	DatasetVCF     DatasetType = "VCF"
	DatasetOther   DatasetType = "OTHER"
)

// Valid reports whether t is a known type
func (t DatasetType) Valid() bool {
	switch t {
	case DatasetFASTQ, DatasetFASTQGZ, DatasetBAM, DatasetVCF, DatasetOther:
		return true
	}
	return false
}

// IsFASTQ reports whether t can back a sample read
func (t DatasetType) IsFASTQ() bool {
	return t == DatasetFASTQ || t == DatasetFASTQGZ
}

// DetectDatasetType infers the type from a file name
func DetectDatasetType(filename string) DatasetType {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".fastq.gz"), strings.HasSuffix(name, ".fq.gz"):
		return DatasetFASTQGZ
	case strings.HasSuffix(name, ".fastq"), strings.HasSuffix(name, ".fq"):
		return DatasetFASTQ
	case strings.HasSuffix(name, ".bam"):
		return DatasetBAM
	case strings.HasSuffix(name, ".vcf"), strings.HasSuffix(name, ".vcf.gz"):
		return DatasetVCF
	default:
		return DatasetOther
	}
}

// Dataset maps an immutable id to a storage URI.
// Maps to: datasets table
type Dataset struct {
	ID          string      `db:"id" json:"id"`
	ProjectID   string      `db:"project_id" json:"project_id"`
	URI         string      `db:"uri" json:"uri"`
	Type        DatasetType `db:"type" json:"type"`
	SizeBytes   *int64      `db:"size_bytes" json:"size_bytes"`
	MD5         *string     `db:"md5" json:"md5"`
	OwnerUserID *string     `db:"owner_user_id" json:"owner_user_id"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
