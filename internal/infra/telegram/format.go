package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gift_delivery_bot/internal/app"
	"gift_delivery_bot/internal/domain/member"

	"gopkg.in/telebot.v3"
)

// maxListed caps list replies below the Telegram message size limit.
const maxListed = 50

const deliverCallbackPrefix = "deliver_"

func statusLabel(s member.Status) string {
	if s == member.StatusDelivered {
		return "ENTREGADO"
	}
	return "PENDIENTE"
}

func formatMember(m member.Member) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d · Cédula %s\n", m.ID, m.Cedula)
	fmt.Fprintf(&b, "%s\n", m.FullName())
	fmt.Fprintf(&b, "Agencia: %s / Empresa: %s\n", m.Agency, m.Company)
	fmt.Fprintf(&b, "Estado: %s", statusLabel(m.Status))
	if m.IsDelivered() {
		fmt.Fprintf(&b, " (%s", m.DeliveredAtString())
		if m.DeliveredBy != "" {
			fmt.Fprintf(&b, " por %s", m.DeliveredBy)
		}
		b.WriteString(")")
	}
	if m.HasNotes() {
		fmt.Fprintf(&b, "\n⚠ Novedad: %s", m.Notes)
	}
	return b.String()
}

func formatMemberLine(m member.Member) string {
	mark := "⏳"
	if m.IsDelivered() {
		mark = "✅"
	}
	line := fmt.Sprintf("%s #%d %s %s", mark, m.ID, m.Cedula, m.FullName())
	if m.HasNotes() {
		line += " ⚠"
	}
	return line
}

func formatMemberList(title string, members []member.Member) string {
	if len(members) == 0 {
		return title + ": sin resultados."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n", title, len(members))
	for i, m := range members {
		if i == maxListed {
			fmt.Fprintf(&b, "... y %d más", len(members)-maxListed)
			break
		}
		b.WriteString(formatMemberLine(m))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStats(s member.Statistics) string {
	return fmt.Sprintf("Total asociados: %d\nEntregados: %d\nPendientes: %d\nCon novedades: %d",
		s.Total, s.Delivered, s.Pending, s.WithNotes)
}

func formatAgencySummary(summary []member.AgencyStats) string {
	if len(summary) == 0 {
		return "No hay asociados registrados."
	}
	var b strings.Builder
	b.WriteString("Resumen por agencia:")
	for _, a := range summary {
		fmt.Fprintf(&b, "\n%s: %d de %d entregados, %d pendientes (%.1f%%)", a.Agency, a.Delivered, a.Total, a.Pending, a.DeliveredPct)
	}
	return b.String()
}

func formatImportResult(res app.ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Importación terminada: %d de %d filas cargadas.", res.Imported, res.Total)
	if len(res.Rejected) > 0 {
		fmt.Fprintf(&b, "\nFilas rechazadas: %d", len(res.Rejected))
		for i, r := range res.Rejected {
			if i == 10 {
				fmt.Fprintf(&b, "\n... y %d más", len(res.Rejected)-10)
				break
			}
			fmt.Fprintf(&b, "\nFila %d (%s): %s", r.Row, r.Cedula, r.Reason())
		}
	}
	return b.String()
}

// errorReply turns a roster error into a user-facing message carrying the error kind.
func errorReply(err error) string {
	switch {
	case errors.Is(err, app.ErrEmptySearchTerm):
		return "Ingrese un término de búsqueda."
	case errors.Is(err, member.ErrNotFound):
		return "NotFound: no existe un asociado con ese ID."
	case errors.Is(err, member.ErrAlreadyDelivered):
		return "AlreadyDelivered: el obsequio ya fue entregado."
	case errors.Is(err, member.ErrDuplicateKey):
		return "DuplicateKey: ya existe un asociado con esa cédula."
	}
	if kind := member.Kind(err); kind != "" {
		return fmt.Sprintf("%s: %s", kind, err.Error())
	}
	return "Ocurrió un error interno. Intente más tarde."
}

// actorOf identifies who performed an action: the username when set, otherwise the numeric id.
func actorOf(u *telebot.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid member id %q", arg)
	}
	return id, nil
}

// deliverMarkup offers a one-tap delivery button for pending members.
func deliverMarkup(m member.Member) *telebot.ReplyMarkup {
	if m.IsDelivered() {
		return nil
	}
	return &telebot.ReplyMarkup{
		InlineKeyboard: [][]telebot.InlineButton{{
			{Text: fmt.Sprintf("Entregar #%d", m.ID), Data: deliverCallbackPrefix + strconv.FormatInt(m.ID, 10)},
		}},
	}
}
