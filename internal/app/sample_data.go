package app

import (
	"context"
)

// sampleRoster reproduces the demonstration data shipped with the legacy spreadsheet tool.
func sampleRoster() Source {
	header := []string{"CEDULA", "APELLIDO 1", "APELLIDO 2", "NOMBRE 1", "NOMBRE 2", "AGENCIA", "EMPRESA", "OBSERVACIONES", "ESTADO", "FECHA_ENTREGA", "USUARIO_ENTREGA"}
	values := [][]string{
		{"12345678", "GARCIA", "PEREZ", "JUAN", "CARLOS", "PRINCIPAL", "EMPRESA A", "", "PENDIENTE", "", ""},
		{"87654321", "MARTINEZ", "GONZALEZ", "MARIA", "ELENA", "ZONA NORTE", "EMPRESA B", "No entregar - Suspendido", "PENDIENTE", "", ""},
		{"11223344", "RODRIGUEZ", "HERNANDEZ", "CARLOS", "ALBERTO", "CENTRO", "EMPRESA C", "", "ENTREGADO", "2024-12-15", "Sistema"},
		{"99887766", "LOPEZ", "DIAZ", "ANA", "SOFIA", "SUR", "EMPRESA D", "Contactar antes de entregar", "PENDIENTE", "", ""},
	}

	src := Source{Columns: header}
	for _, v := range values {
		row := make(map[string]string, len(header))
		for i, h := range header {
			row[h] = v[i]
		}
		src.Rows = append(src.Rows, row)
	}
	return src
}

// SeedSampleData imports four demonstration members, one of them already delivered.
// Members whose cedula is already on the roster are reported as rejected.
func (s *RosterService) SeedSampleData(ctx context.Context) (ImportResult, error) {
	return s.Import(ctx, sampleRoster(), SpanishColumns)
}
