package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	domainTelegram "gift_delivery_bot/internal/domain/telegram"
	"gift_delivery_bot/internal/infra/export"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReportScheduler periodically writes the roster export and delivery report to disk
// and forwards the report to the admin chat when a notifier is configured.
type ReportScheduler struct {
	cronEngine  *cron.Cron
	reporter    *export.Reporter
	notifier    domainTelegram.Client // Optional
	adminChatID int64
	dir         string
	cronSpec    string // e.g., "0 20 * * *" (8 PM daily)
	logger      *logrus.Entry
	now         func() time.Time
}

func NewReportScheduler(
	reporter *export.Reporter,
	notifier domainTelegram.Client,
	adminChatID int64,
	dir string,
	cronSpec string,
	logger *logrus.Entry,
) *ReportScheduler {
	return &ReportScheduler{
		cronEngine:  cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		reporter:    reporter,
		notifier:    notifier,
		adminChatID: adminChatID,
		dir:         dir,
		cronSpec:    cronSpec,
		logger:      logger,
		now:         time.Now,
	}
}

// Start registers the report job and starts the cron engine.
func (s *ReportScheduler) Start() error {
	s.logger.Info("Starting report scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for roster report.")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.WithError(err).Error("Error during roster report")
		}
	})
	if err != nil {
		return fmt.Errorf("could not add report cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Report scheduler started.")
	return nil
}

// RunOnce writes one CSV export and one PDF report and returns their paths.
func (s *ReportScheduler) RunOnce(ctx context.Context) ([]string, error) {
	runID := uuid.NewString()
	logCtx := s.logger.WithField("run_id", runID)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	base := filepath.Join(s.dir, fmt.Sprintf("roster-%s-%s", s.now().Format("20060102-1504"), runID[:8]))
	csvPath, pdfPath := base+".csv", base+".pdf"

	if err := writeFile(csvPath, func(f *os.File) error { return s.reporter.CSV(ctx, f) }); err != nil {
		return nil, err
	}
	if err := writeFile(pdfPath, func(f *os.File) error { return s.reporter.PDF(ctx, f) }); err != nil {
		return []string{csvPath}, err
	}
	logCtx.WithFields(logrus.Fields{"csv": csvPath, "pdf": pdfPath}).Info("Roster report written")

	if s.notifier != nil && s.adminChatID != 0 {
		f, err := os.Open(pdfPath)
		if err != nil {
			return []string{csvPath, pdfPath}, fmt.Errorf("failed to reopen report: %w", err)
		}
		defer f.Close()
		if err := s.notifier.SendDocument(s.adminChatID, filepath.Base(pdfPath), f, "Reporte diario de entregas"); err != nil {
			logCtx.WithError(err).Warn("Failed to send report to admin chat")
			return []string{csvPath, pdfPath}, fmt.Errorf("failed to send report: %w", err)
		}
		logCtx.WithField("admin_chat_id", s.adminChatID).Info("Report sent to admin chat")
	}

	return []string{csvPath, pdfPath}, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func (s *ReportScheduler) Stop() {
	s.logger.Info("Stopping report scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Report scheduler gracefully stopped.")
}
