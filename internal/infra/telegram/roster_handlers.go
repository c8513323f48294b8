// internal/infra/telegram/roster_handlers.go
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"gift_delivery_bot/internal/app"
	"gift_delivery_bot/internal/domain/member"
	"gift_delivery_bot/internal/infra/export"
	"gift_delivery_bot/internal/infra/importer"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const msgUnauthorized = "Error: no tiene permisos para ejecutar este comando."

type rosterHandlers struct {
	ctx             context.Context
	roster          *app.RosterService
	reporter        *export.Reporter
	adminTelegramID int64
	logger          *logrus.Entry
}

// RegisterRosterHandlers registers the roster commands, the delivery buttons and the
// admin document import.
func RegisterRosterHandlers(ctx context.Context, b *telebot.Bot, roster *app.RosterService, reporter *export.Reporter, adminTelegramID int64, baseLogger *logrus.Entry) {
	h := &rosterHandlers{
		ctx:             ctx,
		roster:          roster,
		reporter:        reporter,
		adminTelegramID: adminTelegramID,
		logger:          baseLogger,
	}

	b.Handle("/stats", h.command("/stats", false, h.stats))
	b.Handle("/search", h.command("/search", false, h.search))
	b.Handle("/find", h.command("/find", false, h.find))
	b.Handle("/list", h.command("/list", false, h.list))
	b.Handle("/agencies", h.command("/agencies", false, h.agencies))
	b.Handle("/deliver", h.command("/deliver", false, h.deliver))
	b.Handle("/note", h.command("/note", false, h.note))
	b.Handle("/history", h.command("/history", false, h.history))
	b.Handle("/export", h.command("/export", false, h.exportCSV))
	b.Handle("/report", h.command("/report", false, h.report))
	b.Handle("/undo", h.command("/undo", true, h.undo))
	b.Handle("/seed", h.command("/seed", true, h.seed))
	b.Handle("/clear", h.command("/clear", true, h.clear))
	b.Handle(telebot.OnDocument, h.command("document", true, h.document))
	b.Handle(telebot.OnCallback, h.callback)
}

// command wraps a handler with the per-command log entry and the admin check.
func (h *rosterHandlers) command(name string, adminOnly bool, fn func(telebot.Context, *logrus.Entry) error) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		handlerLogger := h.logger.WithFields(logrus.Fields{
			"handler":   name,
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if adminOnly && c.Sender().ID != h.adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}
		return fn(c, handlerLogger)
	}
}

// fail logs err at a level matching its kind and replies with its user-facing form.
func fail(c telebot.Context, log *logrus.Entry, err error, msg string) error {
	if member.Kind(err) == "" && !errors.Is(err, app.ErrEmptySearchTerm) {
		log.WithError(err).Error(msg)
	} else {
		log.WithError(err).Warn(msg)
	}
	return c.Send(errorReply(err))
}

func sendMember(c telebot.Context, m member.Member) error {
	if markup := deliverMarkup(m); markup != nil {
		return c.Send(formatMember(m), markup)
	}
	return c.Send(formatMember(m))
}

func (h *rosterHandlers) stats(c telebot.Context, log *logrus.Entry) error {
	s, err := h.roster.Statistics(h.ctx)
	if err != nil {
		return fail(c, log, err, "Failed to compute statistics")
	}
	return c.Send(formatStats(s))
}

func (h *rosterHandlers) search(c telebot.Context, log *logrus.Entry) error {
	term := strings.Join(c.Args(), " ")
	seq, err := h.roster.Search(h.ctx, term)
	if err != nil {
		return fail(c, log, err, "Search failed")
	}
	found := slices.Collect(seq)
	log.WithFields(logrus.Fields{"term": term, "results": len(found)}).Info("Search completed")
	if len(found) == 1 {
		return sendMember(c, found[0])
	}
	return c.Send(formatMemberList(fmt.Sprintf("Resultados para %q", term), found))
}

func (h *rosterHandlers) find(c telebot.Context, log *logrus.Entry) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Formato inválido. Use: /find <cédula>")
	}
	m, err := h.roster.FindByCedula(h.ctx, args[0])
	if errors.Is(err, member.ErrNotFound) {
		log.WithField("cedula", args[0]).Warn("Cedula not found")
		return c.Send(fmt.Sprintf("NotFound: no existe un asociado con la cédula %s.", args[0]))
	}
	if err != nil {
		return fail(c, log, err, "Lookup by cedula failed")
	}
	return sendMember(c, *m)
}

func (h *rosterHandlers) list(c telebot.Context, log *logrus.Entry) error {
	args := c.Args()
	criteria := member.Criteria{Kind: member.FilterAll}
	if len(args) > 0 {
		if kind, err := member.ParseFilterKind(args[0]); err == nil {
			criteria.Kind = kind
			args = args[1:]
		}
	}
	criteria.Agency = strings.Join(args, " ")

	seq, err := h.roster.FilterBy(h.ctx, criteria)
	if err != nil {
		return fail(c, log, err, "Filter failed")
	}
	found := slices.Collect(seq)

	title := listTitle(criteria.Kind)
	if criteria.Agency != "" {
		if len(found) == 0 {
			known, err := h.agencyExists(criteria.Agency)
			if err != nil {
				return fail(c, log, err, "Agency lookup failed")
			}
			if !known {
				log.WithField("agency", criteria.Agency).Warn("Unknown agency in list filter")
				return c.Send(fmt.Sprintf("Agencia desconocida: %s. Use /agencies para ver las agencias.", criteria.Agency))
			}
		}
		title += " · " + strings.ToUpper(strings.TrimSpace(criteria.Agency))
	}
	return c.Send(formatMemberList(title, found))
}

func (h *rosterHandlers) agencyExists(agency string) (bool, error) {
	summary, err := h.roster.AgencySummary(h.ctx)
	if err != nil {
		return false, err
	}
	for _, a := range summary {
		if strings.EqualFold(strings.TrimSpace(a.Agency), strings.TrimSpace(agency)) {
			return true, nil
		}
	}
	return false, nil
}

func (h *rosterHandlers) agencies(c telebot.Context, log *logrus.Entry) error {
	summary, err := h.roster.AgencySummary(h.ctx)
	if err != nil {
		return fail(c, log, err, "Agency summary failed")
	}
	return c.Send(formatAgencySummary(summary))
}

func listTitle(kind member.FilterKind) string {
	switch kind {
	case member.FilterDelivered:
		return "Entregados"
	case member.FilterPending:
		return "Pendientes"
	case member.FilterWithNotes:
		return "Con novedades"
	case member.FilterWithoutNotes:
		return "Sin novedades"
	}
	return "Asociados"
}

func (h *rosterHandlers) deliver(c telebot.Context, log *logrus.Entry) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Formato inválido. Use: /deliver <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return c.Send("Error: el ID debe ser un número.")
	}
	m, err := h.roster.MarkDelivered(h.ctx, id, actorOf(c.Sender()))
	if err != nil {
		return fail(c, log.WithField("member_id", id), err, "Delivery failed")
	}
	return c.Send("Entrega registrada.\n\n" + formatMember(*m))
}

func (h *rosterHandlers) note(c telebot.Context, log *logrus.Entry) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Send("Formato inválido. Use: /note <id> <texto> (sin texto borra la novedad)")
	}
	id, err := parseID(args[0])
	if err != nil {
		return c.Send("Error: el ID debe ser un número.")
	}
	text := strings.Join(args[1:], " ")
	m, err := h.roster.Edit(h.ctx, id, app.Updates{member.FieldNotes: text}, actorOf(c.Sender()))
	if err != nil {
		return fail(c, log.WithField("member_id", id), err, "Note update failed")
	}
	return c.Send("Novedad actualizada.\n\n" + formatMember(*m))
}

func (h *rosterHandlers) undo(c telebot.Context, log *logrus.Entry) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Formato inválido. Use: /undo <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return c.Send("Error: el ID debe ser un número.")
	}
	m, err := h.roster.Edit(h.ctx, id, app.Updates{member.FieldStatus: string(member.StatusPending)}, actorOf(c.Sender()))
	if err != nil {
		return fail(c, log.WithField("member_id", id), err, "Undo delivery failed")
	}
	log.WithField("member_id", id).Warn("Delivery reverted")
	return c.Send("Entrega revertida.\n\n" + formatMember(*m))
}

func (h *rosterHandlers) history(c telebot.Context, log *logrus.Entry) error {
	delivered, err := h.roster.History(h.ctx)
	if err != nil {
		return fail(c, log, err, "History failed")
	}
	if len(delivered) == 0 {
		return c.Send("Aún no hay entregas registradas.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Historial de entregas (%d):\n", len(delivered))
	for i, m := range delivered {
		if i == maxListed {
			fmt.Fprintf(&b, "... y %d más", len(delivered)-maxListed)
			break
		}
		fmt.Fprintf(&b, "%s · #%d %s · %s\n", m.DeliveredAtString(), m.ID, m.FullName(), m.DeliveredBy)
	}
	return c.Send(strings.TrimRight(b.String(), "\n"))
}

func (h *rosterHandlers) exportCSV(c telebot.Context, log *logrus.Entry) error {
	var buf bytes.Buffer
	if err := h.reporter.CSV(h.ctx, &buf); err != nil {
		return fail(c, log, err, "CSV export failed")
	}
	return c.Send(&telebot.Document{
		File:     telebot.FromReader(&buf),
		FileName: "roster-" + time.Now().Format("20060102-1504") + ".csv",
		Caption:  "Listado completo de asociados",
	})
}

func (h *rosterHandlers) report(c telebot.Context, log *logrus.Entry) error {
	var buf bytes.Buffer
	if err := h.reporter.PDF(h.ctx, &buf); err != nil {
		return fail(c, log, err, "PDF report failed")
	}
	return c.Send(&telebot.Document{
		File:     telebot.FromReader(&buf),
		FileName: "reporte-" + time.Now().Format("20060102-1504") + ".pdf",
		Caption:  "Reporte de entregas",
	})
}

func (h *rosterHandlers) seed(c telebot.Context, log *logrus.Entry) error {
	res, err := h.roster.SeedSampleData(h.ctx)
	if err != nil {
		return fail(c, log, err, "Seeding sample data failed")
	}
	return c.Send(formatImportResult(res))
}

func (h *rosterHandlers) clear(c telebot.Context, log *logrus.Entry) error {
	if args := c.Args(); len(args) != 1 || args[0] != "confirm" {
		return c.Send("Esta acción borra todos los registros. Para continuar envíe: /clear confirm")
	}
	if err := h.roster.Clear(h.ctx); err != nil {
		return fail(c, log, err, "Clear failed")
	}
	return c.Send("Todos los registros fueron eliminados.")
}

func (h *rosterHandlers) document(c telebot.Context, log *logrus.Entry) error {
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	log = log.WithField("file_name", doc.FileName)

	rc, err := c.Bot().File(&doc.File)
	if err != nil {
		log.WithError(err).Error("Failed to download document")
		return c.Send("No se pudo descargar el archivo.")
	}
	defer rc.Close()
	return h.importDocument(c, log, doc.FileName, rc)
}

func (h *rosterHandlers) importDocument(c telebot.Context, log *logrus.Entry, name string, r io.Reader) error {
	src, err := importer.Read(name, r)
	if err != nil {
		log.WithError(err).Warn("Unreadable import file")
		return c.Send("Archivo no válido: " + err.Error())
	}
	res, err := h.roster.Import(h.ctx, src, app.DetectColumns(src.Columns))
	if err != nil {
		return fail(c, log, err, "Import failed")
	}
	return c.Send(formatImportResult(res))
}
