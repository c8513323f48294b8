package export

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"gift_delivery_bot/internal/app"
	"gift_delivery_bot/internal/domain/member"
	"gift_delivery_bot/internal/infra/importer"
	"gift_delivery_bot/internal/infra/memory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMembers() []member.Member {
	at := time.Date(2024, 12, 15, 10, 0, 0, 0, time.Local)
	return []member.Member{
		{ID: 1, Cedula: "12345678", NameFirst: "JUAN", NameSecond: "CARLOS", SurnameFirst: "GARCIA", SurnameSecond: "PEREZ",
			Agency: "PRINCIPAL", Company: "EMPRESA A", Status: member.StatusPending},
		{ID: 2, Cedula: "11223344", NameFirst: "CARLOS", SurnameFirst: "RODRÍGUEZ", Agency: "CENTRO", Company: "EMPRESA C",
			Notes: "Entregar solo al titular, con documento original y firma", Status: member.StatusDelivered, DeliveredAt: &at, DeliveredBy: "Sistema"},
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 30))
	assert.Equal(t, "Entregar solo al titular, con ...", Truncate("Entregar solo al titular, con documento", 30))
	assert.Equal(t, "ñañ...", Truncate("ñañañ", 3))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleMembers()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\ufeffID,CEDULA,NAME 1,NAME 2,SURNAME 1,SURNAME 2,AGENCY,COMPANY,NOTES,STATUS,DELIVERED AT,DELIVERED BY\n"))
	assert.Contains(t, out, "2,11223344,CARLOS,,RODRÍGUEZ,,CENTRO,EMPRESA C,\"Entregar solo al titular, con documento original y firma\",DELIVERED,2024-12-15 10:00,Sistema\n")
}

func TestCSVRoundTripThroughImporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleMembers()))

	src, err := importer.ReadCSV(&buf)
	require.NoError(t, err)

	l := logrus.New()
	l.SetOutput(io.Discard)
	svc := app.NewRosterService(memory.NewMemberRepository(), logrus.NewEntry(l))
	res, err := svc.Import(context.Background(), src, app.DetectColumns(src.Columns))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)

	m, err := svc.FindByCedula(context.Background(), "11223344")
	require.NoError(t, err)
	assert.Equal(t, member.StatusDelivered, m.Status)
	assert.Equal(t, "2024-12-15 10:00", m.DeliveredAtString())
	assert.Equal(t, "Sistema", m.DeliveredBy)
	assert.Equal(t, "Entregar solo al titular, con documento original y firma", m.Notes)
}

func TestWritePDF(t *testing.T) {
	members := sampleMembers()
	for i := 0; i < 80; i++ {
		members = append(members, members[0])
	}

	var buf bytes.Buffer
	err := WritePDF(&buf, member.Tally(members), members, ReportOptions{Organization: "COOPERENKA"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFWithManyAgencies(t *testing.T) {
	var members []member.Member
	for i := 0; i < 60; i++ {
		m := sampleMembers()[0]
		m.ID = int64(i + 1)
		m.Agency = "AGENCIA " + strconv.Itoa(i)
		members = append(members, m)
	}

	var buf bytes.Buffer
	err := WritePDF(&buf, member.Tally(members), members, ReportOptions{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
