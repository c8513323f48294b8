package telegram

import (
	"fmt"
	"strings"

	"gift_delivery_bot/internal/domain/member"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// callback handles the inline "Entregar #id" buttons attached to pending members.
func (h *rosterHandlers) callback(c telebot.Context) error {
	data := strings.TrimSpace(c.Callback().Data)
	log := h.logger.WithFields(logrus.Fields{
		"handler":   "callback",
		"sender_id": c.Sender().ID,
		"data":      data,
	})

	if !strings.HasPrefix(data, deliverCallbackPrefix) {
		log.Warn("Unhandled callback data")
		return c.Respond(&telebot.CallbackResponse{Text: "Acción desconocida."})
	}
	id, err := parseID(strings.TrimPrefix(data, deliverCallbackPrefix))
	if err != nil {
		log.WithError(err).Warn("Invalid member id in callback")
		return c.Respond(&telebot.CallbackResponse{Text: "ID de asociado inválido."})
	}

	m, err := h.roster.MarkDelivered(h.ctx, id, actorOf(c.Sender()))
	if err != nil {
		if member.Kind(err) == "" {
			log.WithError(err).Error("Delivery from button failed")
		}
		return c.Respond(&telebot.CallbackResponse{Text: errorReply(err), ShowAlert: true})
	}

	log.WithField("member_id", id).Info("Delivery registered from button")
	if err := c.Respond(&telebot.CallbackResponse{Text: fmt.Sprintf("Entrega de #%d registrada.", m.ID)}); err != nil {
		return err
	}
	return c.Send("Entrega registrada.\n\n" + formatMember(*m))
}
