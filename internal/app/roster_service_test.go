package app

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"gift_delivery_bot/internal/domain/member"
	"gift_delivery_bot/internal/infra/memory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 12, 20, 9, 30, 0, 0, time.UTC)

func newTestService() *RosterService {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewRosterService(memory.NewMemberRepository(), logrus.NewEntry(l)).
		WithClock(func() time.Time { return fixedNow })
}

func englishSource(rows ...[]string) Source {
	header := []string{"CEDULA", "NAME 1", "NAME 2", "SURNAME 1", "SURNAME 2", "AGENCY", "COMPANY", "NOTES"}
	src := Source{Columns: header}
	for _, v := range rows {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(v) {
				row[h] = v[i]
			}
		}
		src.Rows = append(src.Rows, row)
	}
	return src
}

func row(cedula string) []string {
	return []string{cedula, "JUAN", "CARLOS", "GARCIA", "PEREZ", "PRINCIPAL", "EMPRESA A", ""}
}

func mustImport(t *testing.T, s *RosterService, src Source) ImportResult {
	t.Helper()
	res, err := s.Import(context.Background(), src, DefaultColumns)
	require.NoError(t, err)
	return res
}

func idOf(t *testing.T, s *RosterService, cedula string) int64 {
	t.Helper()
	m, err := s.FindByCedula(context.Background(), cedula)
	require.NoError(t, err)
	return m.ID
}

func TestRosterService_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	res := mustImport(t, s, englishSource(row("111"), row("222")))
	assert.Equal(t, 2, res.Imported)
	assert.Empty(t, res.Rejected)

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, member.Statistics{Total: 2, Delivered: 0, Pending: 2, WithNotes: 0}, stats)

	id111 := idOf(t, s, "111")
	delivered, err := s.MarkDelivered(ctx, id111, "alice")
	require.NoError(t, err)
	assert.Equal(t, member.StatusDelivered, delivered.Status)
	assert.Equal(t, "alice", delivered.DeliveredBy)
	assert.Equal(t, fixedNow, *delivered.DeliveredAt)

	stats, err = s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 1, stats.Pending)

	s.WithClock(func() time.Time { return fixedNow.Add(time.Hour) })
	_, err = s.MarkDelivered(ctx, id111, "bob")
	assert.ErrorIs(t, err, member.ErrAlreadyDelivered)
	again, err := s.Get(ctx, id111)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.DeliveredBy)
	assert.Equal(t, fixedNow, *again.DeliveredAt)

	found, err := s.Search(ctx, "111")
	require.NoError(t, err)
	got := slices.Collect(found)
	require.Len(t, got, 1)
	assert.Equal(t, "111", got[0].Cedula)

	none, err := s.Search(ctx, "999")
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(none))

	res = mustImport(t, s, englishSource(row("111"), row("333")))
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "111", res.Rejected[0].Cedula)
	assert.Equal(t, 2, res.Rejected[0].Row)
	assert.ErrorIs(t, res.Rejected[0].Err, member.ErrDuplicateKey)
	assert.Equal(t, "DuplicateKey", res.Rejected[0].Reason())

	_, err = s.FindByCedula(ctx, "333")
	assert.NoError(t, err)
}

func TestRosterService_ImportSchemaError(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	src := Source{
		Columns: []string{"CEDULA", "NAME 1", "SURNAME 1"},
		Rows:    []map[string]string{{"CEDULA": "1", "NAME 1": "A", "SURNAME 1": "B"}},
	}

	_, err := s.Import(ctx, src, DefaultColumns)
	require.Error(t, err)
	var schemaErr *member.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"SURNAME 2", "NAME 2", "AGENCY", "COMPANY"}, schemaErr.Missing)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRosterService_ImportRejectsInvalidRows(t *testing.T) {
	s := newTestService()
	blankAgency := row("555")
	blankAgency[5] = "  "
	res := mustImport(t, s, englishSource(row("444"), blankAgency, row("444"), row("666")))

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, "ValidationError", res.Rejected[0].Reason())
	assert.Equal(t, 3, res.Rejected[0].Row)
	assert.Equal(t, "DuplicateKey", res.Rejected[1].Reason())
	assert.Equal(t, 4, res.Rejected[1].Row)
}

func TestRosterService_ImportedRecordsSatisfyInvariants(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	_, err := s.SeedSampleData(ctx)
	require.NoError(t, err)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for _, m := range all {
		assert.NoError(t, m.Validate(), m.Cedula)
	}

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, member.Statistics{Total: 4, Delivered: 1, Pending: 3, WithNotes: 2}, stats)

	res, err := s.SeedSampleData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Len(t, res.Rejected, 4)
}

func TestRosterService_ImportStatusColumns(t *testing.T) {
	s := newTestService()
	src := Source{Columns: []string{"CEDULA", "NOMBRE 1", "NOMBRE 2", "APELLIDO 1", "APELLIDO 2", "AGENCIA", "EMPRESA", "ESTADO", "FECHA_ENTREGA"}}
	add := func(cedula, status, at string) {
		src.Rows = append(src.Rows, map[string]string{
			"CEDULA": cedula, "NOMBRE 1": "A", "APELLIDO 1": "B", "AGENCIA": "C", "EMPRESA": "D",
			"ESTADO": status, "FECHA_ENTREGA": at,
		})
	}
	add("1", "ENTREGADO", "2024-12-15 10:00")
	add("2", "ENTREGADO", "")
	add("3", "PENDIENTE", "2024-12-15")
	add("4", "PERDIDO", "")

	res, err := s.Import(context.Background(), src, DetectColumns(src.Columns))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Rejected, 3)
	for _, r := range res.Rejected {
		assert.ErrorIs(t, r.Err, member.ErrValidation)
	}
}

func TestDetectColumns(t *testing.T) {
	assert.Equal(t, SpanishColumns, DetectColumns([]string{"cedula", "Nombre 1", "APELLIDO 1", "AGENCIA"}))
	assert.Equal(t, DefaultColumns, DetectColumns([]string{"CEDULA", "NAME 1"}))
	assert.Equal(t, DefaultColumns, DetectColumns(nil))
}

func TestRosterService_SearchMatchesNamesCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	_, err := s.SeedSampleData(ctx)
	require.NoError(t, err)

	seq, err := s.Search(ctx, "maria elena")
	require.NoError(t, err)
	got := slices.Collect(seq)
	require.Len(t, got, 1)
	assert.Equal(t, "87654321", got[0].Cedula)

	seq, err = s.Search(ctx, "a")
	require.NoError(t, err)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
	assert.Equal(t, "12345678", first[0].Cedula)

	_, err = s.Search(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptySearchTerm)
}

func TestRosterService_FilterWithNotes(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	a, b, c, d := row("1"), row("2"), row("3"), row("4")
	b[7] = "   "
	c[7] = "Verificar identidad"
	d[7] = "\t"
	mustImport(t, s, englishSource(a, b, c, d))

	seq, err := s.Filter(ctx, member.FilterWithNotes)
	require.NoError(t, err)
	got := slices.Collect(seq)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].Cedula)

	seq, err = s.Filter(ctx, member.FilterAll)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 4)

	_, err = s.MarkDelivered(ctx, idOf(t, s, "2"), "alice")
	require.NoError(t, err)
	seq, err = s.Filter(ctx, member.FilterPending)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 3)
	seq, err = s.Filter(ctx, member.FilterDelivered)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 1)
}

func TestRosterService_MarkDeliveredNotFound(t *testing.T) {
	_, err := newTestService().MarkDelivered(context.Background(), 42, "alice")
	assert.ErrorIs(t, err, member.ErrNotFound)
}

func TestRosterService_EditFields(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	mustImport(t, s, englishSource(row("111"), row("222")))
	id := idOf(t, s, "111")

	m, err := s.Edit(ctx, id, Updates{member.FieldNotes: "Contactar antes", member.FieldAgency: " CENTRO "}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Contactar antes", m.Notes)
	assert.Equal(t, "CENTRO", m.Agency)
	assert.Equal(t, member.StatusPending, m.Status)

	_, err = s.Edit(ctx, id, Updates{member.FieldNameFirst: " "}, "admin")
	assert.ErrorIs(t, err, member.ErrValidation)

	_, err = s.Edit(ctx, id, Updates{member.FieldCedula: "222"}, "admin")
	assert.ErrorIs(t, err, member.ErrDuplicateKey)

	_, err = s.Edit(ctx, id, Updates{"id": "5"}, "admin")
	assert.ErrorIs(t, err, member.ErrValidation)

	_, err = s.Edit(ctx, 999, Updates{member.FieldNotes: "x"}, "admin")
	assert.ErrorIs(t, err, member.ErrNotFound)

	stored, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "111", stored.Cedula)
	assert.Equal(t, "JUAN", stored.NameFirst)

	m, err = s.Edit(ctx, id, Updates{member.FieldCedula: "777"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "777", m.Cedula)
	_, err = s.FindByCedula(ctx, "111")
	assert.ErrorIs(t, err, member.ErrNotFound)
}

func TestRosterService_EditStatusTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	mustImport(t, s, englishSource(row("111"), row("222")))
	id := idOf(t, s, "111")

	m, err := s.Edit(ctx, id, Updates{member.FieldStatus: "DELIVERED"}, "carol")
	require.NoError(t, err)
	assert.Equal(t, member.StatusDelivered, m.Status)
	assert.Equal(t, fixedNow, *m.DeliveredAt)
	assert.Equal(t, "carol", m.DeliveredBy)

	m, err = s.Edit(ctx, id, Updates{member.FieldStatus: "PENDING"}, "carol")
	require.NoError(t, err)
	assert.Equal(t, member.StatusPending, m.Status)
	assert.Nil(t, m.DeliveredAt)
	assert.Empty(t, m.DeliveredBy)

	m, err = s.Edit(ctx, id, Updates{
		member.FieldStatus:      "entregado",
		member.FieldDeliveredAt: "2025-12-01 08:15",
		member.FieldDeliveredBy: "dave",
	}, "carol")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-01 08:15", m.DeliveredAtString())
	assert.Equal(t, "dave", m.DeliveredBy)

	_, err = s.Edit(ctx, id, Updates{member.FieldStatus: "PENDING", member.FieldDeliveredBy: "eve"}, "carol")
	assert.ErrorIs(t, err, member.ErrValidation)

	other := idOf(t, s, "222")
	_, err = s.Edit(ctx, other, Updates{member.FieldDeliveredBy: "eve"}, "carol")
	assert.ErrorIs(t, err, member.ErrValidation)

	_, err = s.Edit(ctx, other, Updates{member.FieldStatus: "LOST"}, "carol")
	assert.ErrorIs(t, err, member.ErrValidation)

	stored, err := s.Get(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, member.StatusPending, stored.Status)
	assert.Nil(t, stored.DeliveredAt)
}

func TestRosterService_AddAndUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	m, err := s.Add(ctx, member.Member{
		Cedula: " 555 ", NameFirst: "LUIS", SurnameFirst: "GOMEZ", Agency: "SUR", Company: "EMPRESA E",
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "555", m.Cedula)
	assert.Equal(t, member.StatusPending, m.Status)
	assert.NotZero(t, m.ID)

	_, err = s.Add(ctx, member.Member{Cedula: "555", NameFirst: "X", SurnameFirst: "Y", Agency: "Z", Company: "W"}, "admin")
	assert.ErrorIs(t, err, member.ErrDuplicateKey)

	_, err = s.Add(ctx, member.Member{Cedula: "556"}, "admin")
	assert.ErrorIs(t, err, member.ErrValidation)

	d, err := s.Add(ctx, member.Member{
		Cedula: "557", NameFirst: "X", SurnameFirst: "Y", Agency: "Z", Company: "W", Status: member.StatusDelivered,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", d.DeliveredBy)
	assert.Equal(t, fixedNow, *d.DeliveredAt)

	// Uniqueness holds across mixed imports and edits.
	mustImport(t, s, englishSource(row("555"), row("558")))
	_, err = s.Edit(ctx, idOf(t, s, "558"), Updates{member.FieldCedula: "557"}, "admin")
	assert.ErrorIs(t, err, member.ErrDuplicateKey)

	all, err := s.All(ctx)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, m := range all {
		assert.False(t, seen[m.Cedula], m.Cedula)
		seen[m.Cedula] = true
	}
}

func TestRosterService_HistoryAndClear(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	mustImport(t, s, englishSource(row("1"), row("2"), row("3")))

	s.WithClock(func() time.Time { return fixedNow.Add(2 * time.Hour) })
	_, err := s.MarkDelivered(ctx, idOf(t, s, "1"), "alice")
	require.NoError(t, err)
	s.WithClock(func() time.Time { return fixedNow })
	_, err = s.MarkDelivered(ctx, idOf(t, s, "3"), "bob")
	require.NoError(t, err)

	history, err := s.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "3", history[0].Cedula)
	assert.Equal(t, "1", history[1].Cedula)

	require.NoError(t, s.Clear(ctx))
	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, member.Statistics{}, stats)
}

func TestRosterService_EditCannotRewriteDeliveryStamp(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	mustImport(t, s, englishSource(row("111")))
	id := idOf(t, s, "111")

	_, err := s.MarkDelivered(ctx, id, "alice")
	require.NoError(t, err)

	for _, updates := range []Updates{
		{member.FieldDeliveredBy: "mallory"},
		{member.FieldDeliveredAt: "2020-01-01 00:00"},
		{member.FieldDeliveredAt: "2020-01-01 00:00", member.FieldDeliveredBy: "mallory", member.FieldNotes: "x"},
		{member.FieldStatus: "DELIVERED", member.FieldDeliveredBy: "mallory"},
	} {
		_, err = s.Edit(ctx, id, updates, "mallory")
		assert.ErrorIs(t, err, member.ErrValidation)
	}

	stored, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, member.StatusDelivered, stored.Status)
	assert.Equal(t, "alice", stored.DeliveredBy)
	assert.Equal(t, fixedNow, *stored.DeliveredAt)
	assert.Empty(t, stored.Notes)
}

func TestRosterService_WhitespaceNotesAreNotNovelties(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	mustImport(t, s, englishSource(row("1"), row("2")))

	m, err := s.Edit(ctx, idOf(t, s, "1"), Updates{member.FieldNotes: " \t "}, "admin")
	require.NoError(t, err)
	assert.Equal(t, " \t ", m.Notes)

	seq, err := s.Filter(ctx, member.FilterWithNotes)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))

	seq, err = s.Filter(ctx, member.FilterWithoutNotes)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 2)

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.WithNotes)
}

func TestRosterService_FilterByAgencyAndSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	_, err := s.SeedSampleData(ctx)
	require.NoError(t, err)
	extra := row("55555555")
	extra[5] = "SUR"
	mustImport(t, s, englishSource(extra))

	seq, err := s.FilterBy(ctx, member.Criteria{Agency: "sur"})
	require.NoError(t, err)
	sur := slices.Collect(seq)
	require.Len(t, sur, 2)
	assert.Equal(t, "99887766", sur[0].Cedula)
	assert.Equal(t, "55555555", sur[1].Cedula)

	seq, err = s.FilterBy(ctx, member.Criteria{Kind: member.FilterWithoutNotes, Agency: "SUR"})
	require.NoError(t, err)
	sur = slices.Collect(seq)
	require.Len(t, sur, 1)
	assert.Equal(t, "55555555", sur[0].Cedula)

	seq, err = s.FilterBy(ctx, member.Criteria{Agency: "OESTE"})
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))

	summary, err := s.AgencySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, []member.AgencyStats{
		{Agency: "CENTRO", Total: 1, Delivered: 1, Pending: 0, DeliveredPct: 100},
		{Agency: "PRINCIPAL", Total: 1, Delivered: 0, Pending: 1, DeliveredPct: 0},
		{Agency: "SUR", Total: 2, Delivered: 0, Pending: 2, DeliveredPct: 0},
		{Agency: "ZONA NORTE", Total: 1, Delivered: 0, Pending: 1, DeliveredPct: 0},
	}, summary)
}
