// store.go - Report archive contract shared by the MongoDB and in-memory stores

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
)

// ErrNotFound is returned when a report id is unknown or expired.
var ErrNotFound = errors.New("report not found")

// StoredReport is one archived analysis.
type StoredReport struct {
	ReportID    string                 `bson:"report_id" json:"report_id"`
	RequestID   string                 `bson:"request_id" json:"request_id"`
	Mode        report.Mode            `bson:"mode" json:"mode"`
	Style       report.Style           `bson:"style" json:"style"`
	Language    report.Language        `bson:"language" json:"language"`
	Simulated   bool                   `bson:"simulated" json:"simulated"`
	Model       string                 `bson:"model,omitempty" json:"model,omitempty"`
	Attempts    int                    `bson:"attempts" json:"attempts"`
	Report      *report.AnalysisReport `bson:"report" json:"report"`
	PortraitURL string                 `bson:"portrait_url,omitempty" json:"portrait_url,omitempty"`
	CreatedAt   time.Time              `bson:"created_at" json:"created_at"`
}

// ReportStore archives finished analyses.
type ReportStore interface {
	Save(ctx context.Context, r StoredReport) error
	Get(ctx context.Context, id string) (*StoredReport, error)
}

// PortraitStore keeps the preprocessed image next to its report.
type PortraitStore interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (string, error)
}
