package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/expense-reports/internal/apperr"
	"github.com/zombor/expense-reports/internal/blob"
	"github.com/zombor/expense-reports/internal/ownership"
	"github.com/zombor/expense-reports/internal/receipt"
)

// ReceiptSource supplies the receipts a report covers
type ReceiptSource interface {
	ListReceiptsInRange(owner string, start, end time.Time) ([]*receipt.Receipt, error)
}

// Queue schedules report IDs for background rendering
type Queue interface {
	Enqueue(ctx context.Context, reportID string) error
}

// IDGenerator generates unique IDs for reports
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// errNotPending aborts a status transition on a report that already
// reached a terminal state.
var errNotPending = errors.New("report is no longer pending")

// Manager accepts report requests, renders them in the background and
// serves the finished artifacts.
type Manager struct {
	store       Store
	receipts    ReceiptSource
	artifacts   blob.Storage
	queue       Queue
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewManager creates a Manager with a UUID generator and the system clock
func NewManager(store Store, receipts ReceiptSource, artifacts blob.Storage, queue Queue) *Manager {
	return NewManagerWithDeps(store, receipts, artifacts, queue, uuidGenerator{}, systemClock{})
}

// NewManagerWithDeps creates a Manager with custom dependencies for testing
func NewManagerWithDeps(store Store, receipts ReceiptSource, artifacts blob.Storage, queue Queue, idGen IDGenerator, timeSrc TimeSource) *Manager {
	return &Manager{
		store:       store,
		receipts:    receipts,
		artifacts:   artifacts,
		queue:       queue,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// RequestReport records a pending report for the owner's receipts dated
// within [startDate, endDate] and schedules it for rendering. The returned
// record is pending; the caller polls ListReports or FetchArtifact.
func (m *Manager) RequestReport(ctx context.Context, owner, startDate, endDate, format string) (*Report, error) {
	if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
		return nil, apperr.Validationf("start_date and end_date are required")
	}
	start, err := receipt.ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := receipt.ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s is after %s", apperr.ErrInvalidRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:        m.idGenerator.Generate(),
		OwnerID:   owner,
		StartDate: start,
		EndDate:   end,
		Format:    f,
		Status:    StatusPending,
		CreatedAt: m.timeSource.Now().UTC(),
	}
	if err := m.store.SaveReport(report); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}

	// A report left pending here is picked up again by Recover.
	if err := m.queue.Enqueue(ctx, report.ID); err != nil {
		slog.Error("Failed to queue report", "report_id", report.ID, "error", err)
	}

	return report, nil
}

type rendered struct {
	data []byte
	err  error
}

// Process renders a pending report and moves it to completed, or to failed
// if rendering errors or outlives ctx. Reports not in the pending state are
// left untouched, so running Process twice for one ID is harmless.
//
// Receipts are read when the job runs, not when the report was requested.
func (m *Manager) Process(ctx context.Context, reportID string) error {
	report, err := m.store.GetReport(reportID)
	if err != nil {
		return fmt.Errorf("loading report: %w", err)
	}
	if report.Status != StatusPending {
		slog.Debug("Skipping report that is not pending", "report_id", reportID, "status", report.Status)
		return nil
	}

	out := make(chan rendered, 1)
	go func() {
		receipts, err := m.receipts.ListReceiptsInRange(report.OwnerID, report.StartDate, report.EndDate)
		if err != nil {
			out <- rendered{err: fmt.Errorf("listing receipts: %w", err)}
			return
		}
		out <- rendered{data: Render(receipts)}
	}()

	var res rendered
	select {
	case <-ctx.Done():
		m.fail(reportID, "render timed out")
		return fmt.Errorf("rendering report %s: %w", reportID, ctx.Err())
	case res = <-out:
	}
	if res.err != nil {
		m.fail(reportID, res.err.Error())
		return res.err
	}

	if _, err := m.artifacts.Save(artifactKey(report.OwnerID, report.ID), res.data); err != nil {
		m.fail(reportID, "storing artifact failed")
		return fmt.Errorf("storing artifact: %w", err)
	}

	_, err = m.store.UpdateReport(reportID, func(r *Report) error {
		if r.Status != StatusPending {
			return errNotPending
		}
		url := artifactURL(r.OwnerID, r.ID, r.Format)
		finished := m.timeSource.Now().UTC()
		r.Status = StatusCompleted
		r.URL = &url
		r.FinishedAt = &finished
		return nil
	})
	if errors.Is(err, errNotPending) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("completing report: %w", err)
	}
	return nil
}

func (m *Manager) fail(reportID, reason string) {
	_, err := m.store.UpdateReport(reportID, func(r *Report) error {
		if r.Status != StatusPending {
			return errNotPending
		}
		finished := m.timeSource.Now().UTC()
		r.Status = StatusFailed
		r.FailureReason = reason
		r.FinishedAt = &finished
		return nil
	})
	if err != nil && !errors.Is(err, errNotPending) {
		slog.Error("Failed to mark report failed", "report_id", reportID, "error", err)
	}
}

// FetchArtifact returns the rendered bytes for a completed report. fileName
// is one of report.csv, report.pdf or report.excel; only csv has content.
func (m *Manager) FetchArtifact(owner, reportID, fileName string) ([]byte, *Report, error) {
	format, err := FormatFromFileName(fileName)
	if err != nil {
		return nil, nil, err
	}
	report, err := m.store.GetReport(reportID)
	if err != nil {
		return nil, nil, err
	}
	if err := ownership.Assert(owner, report); err != nil {
		return nil, nil, err
	}

	switch report.Status {
	case StatusFailed:
		return nil, report, fmt.Errorf("%w: %s", apperr.ErrReportFailed, report.FailureReason)
	case StatusPending:
		return nil, report, apperr.ErrNotReady
	}
	if format != FormatCSV {
		return nil, report, fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, format)
	}

	data, err := m.artifacts.Get(artifactKey(report.OwnerID, report.ID))
	if err != nil {
		return nil, report, fmt.Errorf("reading artifact: %w", err)
	}
	return data, report, nil
}

// ListReports returns the owner's reports, newest first
func (m *Manager) ListReports(owner string) ([]*Report, error) {
	reports, err := m.store.ListReports(owner)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(reports, func(a, b *Report) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return reports, nil
}

// Recover re-queues every report still pending, such as those interrupted
// by a restart.
func (m *Manager) Recover(ctx context.Context) error {
	pending, err := m.store.ListPending()
	if err != nil {
		return fmt.Errorf("listing pending reports: %w", err)
	}
	for _, r := range pending {
		if err := m.queue.Enqueue(ctx, r.ID); err != nil {
			return fmt.Errorf("requeueing report %s: %w", r.ID, err)
		}
	}
	if len(pending) > 0 {
		slog.Info("Requeued pending reports", "count", len(pending))
	}
	return nil
}
