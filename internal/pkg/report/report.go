// Package report renders a contributor's donation history as CSV and
// optionally archives a copy in object storage.
package report

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/s3export"
)

const ContentType = "text/csv; charset=utf-8"

// Archiver stores rendered reports. *s3export.Client satisfies it.
type Archiver interface {
	Upload(ctx context.Context, objectKey string, body []byte, contentType string) (*s3export.UploadResult, error)
}

// Report is a rendered contribution report.
type Report struct {
	Filename   string
	Body       []byte
	ArchiveKey string // empty when archiving is disabled or failed
}

// Exporter renders reports.
type Exporter struct {
	archiver Archiver
	keyFor   func(owner string, at time.Time) string
	now      func() time.Time
}

// NewExporter creates an exporter. A nil archiver disables archiving.
func NewExporter(archiver Archiver) *Exporter {
	cfg := &s3export.Config{}
	return &Exporter{
		archiver: archiver,
		keyFor:   cfg.ReportObjectKey,
		now:      time.Now,
	}
}

// Build renders the contributions of one person. Archive failures are logged
// and do not fail the export.
func (e *Exporter) Build(ctx context.Context, owner models.Identity, contributions []models.Contribution) (*Report, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{{"date", "issue_id", "issue_title", "amount", "message"}}
	var total int64
	for _, c := range contributions {
		total += c.Amount
		rows = append(rows, []string{
			c.CreatedAt.UTC().Format(time.RFC3339),
			c.IssueID,
			c.IssueTitle,
			strconv.FormatInt(c.Amount, 10),
			c.Message,
		})
	}
	rows = append(rows, []string{"", "", "total", strconv.FormatInt(total, 10), ""})

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	now := e.now()
	r := &Report{
		Filename: fmt.Sprintf("contributions-%s.csv", now.UTC().Format("2006-01-02")),
		Body:     buf.Bytes(),
	}

	if e.archiver != nil {
		key := e.keyFor(ownerKey(owner.Email), now)
		if _, err := e.archiver.Upload(ctx, key, r.Body, ContentType); err != nil {
			log.Warnf("[Report] Archiving report failed: %v", err)
		} else {
			r.ArchiveKey = key
		}
	}
	return r, nil
}

// ownerKey keeps email addresses out of object keys.
func ownerKey(email string) string {
	sum := sha256.Sum256([]byte(models.NormalizeEmail(email)))
	return hex.EncodeToString(sum[:8])
}
