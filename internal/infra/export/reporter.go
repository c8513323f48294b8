package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"gift_delivery_bot/internal/app"
	"gift_delivery_bot/internal/domain/member"
)

// Reporter renders roster exports from the live service.
type Reporter struct {
	roster *app.RosterService
	opts   ReportOptions
	now    func() time.Time
}

func NewReporter(roster *app.RosterService, opts ReportOptions) *Reporter {
	return &Reporter{roster: roster, opts: opts, now: time.Now}
}

// CSV writes every member as delimited text.
func (r *Reporter) CSV(ctx context.Context, w io.Writer) error {
	members, err := r.roster.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roster for export: %w", err)
	}
	return WriteCSV(w, members)
}

// PDF writes the statistics summary and full record table.
func (r *Reporter) PDF(ctx context.Context, w io.Writer) error {
	members, err := r.roster.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roster for report: %w", err)
	}
	opts := r.opts
	opts.GeneratedAt = r.now()
	return WritePDF(w, member.Tally(members), members, opts)
}
