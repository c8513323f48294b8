// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	b *telebot.Bot,
	adminTelegramID int64,
	organization string,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")
		return c.Send(startText(c.Sender().FirstName, organization, senderID == adminTelegramID))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")
		return c.Send(helpText(senderID == adminTelegramID), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func startText(firstName, organization string, isAdmin bool) string {
	if isAdmin {
		return fmt.Sprintf("Hola, administrador %s. El control de entregas de %s está listo. Use /help para ver los comandos.", firstName, organization)
	}
	return fmt.Sprintf("Hola, %s. Soy el bot de entrega de obsequios de %s. Use /help para ver los comandos.", firstName, organization)
}

func helpText(isAdmin bool) string {
	var help strings.Builder
	help.WriteString("Comandos disponibles:\n\n")
	help.WriteString("`/stats` - Resumen de entregas.\n")
	help.WriteString("`/search <texto>` - Buscar por cédula o nombre.\n")
	help.WriteString("`/find <cédula>` - Ver un asociado por cédula.\n")
	help.WriteString("`/list [all|delivered|pending|notes|no_notes] [agencia]` - Listar asociados.\n")
	help.WriteString("`/agencies` - Resumen de entregas por agencia.\n")
	help.WriteString("`/deliver <id>` - Registrar la entrega del obsequio.\n")
	help.WriteString("`/note <id> <texto>` - Registrar una novedad.\n")
	help.WriteString("`/history` - Historial de entregas.\n")
	help.WriteString("`/export` - Descargar el listado en CSV.\n")
	help.WriteString("`/report` - Descargar el reporte en PDF.\n")
	if isAdmin {
		help.WriteString("\nAdministración:\n")
		help.WriteString("`/undo <id>` - Revertir una entrega a pendiente.\n")
		help.WriteString("`/seed` - Cargar datos de ejemplo.\n")
		help.WriteString("`/clear confirm` - Borrar todos los registros.\n")
		help.WriteString("Envíe un archivo CSV o XLSX para importarlo.\n")
	}
	return help.String()
}
