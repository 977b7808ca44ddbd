package sheet

import (
	"testing"

	"recipe-costing/internal/core/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func TestParseDelimited(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{"simple", "a,b\nc,d", [][]string{{"a", "b"}, {"c", "d"}}},
		{"crlf", "a,b\r\nc,d\r\n", [][]string{{"a", "b"}, {"c", "d"}}},
		{"lone cr", "a\rb", [][]string{{"a"}, {"b"}}},
		{"quoted delimiter", `"Martin, fils",x`, [][]string{{"Martin, fils", "x"}}},
		{"escaped quote", `"dit ""bio""",y`, [][]string{{`dit "bio"`, "y"}}},
		{"quoted newline", "\"a\nb\",c", [][]string{{"a\nb", "c"}}},
		{"unterminated quote", `x,"abc`, [][]string{{"x", "abc"}}},
		{"trailing empty cell", "a,", [][]string{{"a", ""}}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDelimited(tt.input, ','))
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ',', DetectDelimiter("a,b,c\n1;2"))
	assert.Equal(t, ';', DetectDelimiter("\n\nFournisseur;Désignation;Prix\n"))
	assert.Equal(t, '\t', DetectDelimiter("a\tb\tc"))
	assert.Equal(t, ';', DetectDelimiter(`"a,b,c";d;e`))
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "Crème", DecodeText([]byte("\xEF\xBB\xBFCrème")))

	legacy, err := charmap.Windows1252.NewEncoder().String("Pâté de campagne")
	require.NoError(t, err)
	assert.Equal(t, "Pâté de campagne", DecodeText([]byte(legacy)))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input string
		want  *float64
	}{
		{"1.234,56", ptr(1234.56)},
		{"12,5", ptr(12.5)},
		{"32.50", ptr(32.5)},
		{"€ 8,90 HT", ptr(8.9)},
		{"-", nil},
		{"--", nil},
		{"", nil},
		{"n/a", nil},
		{"-3,2", ptr(-3.2)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParsePrice(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		input string
		want  catalog.Unit
	}{
		{"Kg", catalog.UnitKilogram},
		{"pièces", catalog.UnitPiece},
		{"Bouteille", catalog.UnitPiece},
		{"crate", catalog.UnitPiece},
		{"Litre", catalog.UnitLiter},
		{"grammi", catalog.UnitGram},
		{"sac 25kg", catalog.UnitKilogram},
		{"75 cl", catalog.UnitCentiliter},
		{"500ml", catalog.UnitMilliliter},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeUnit(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, NormalizeUnit("xyz123"))
	assert.Nil(t, NormalizeUnit("   "))
}

func TestClassifyHeader(t *testing.T) {
	cols, ok := ClassifyHeader([]string{"Fournisseur", "Désignation", "Prix unitaire", "Unité"})
	require.True(t, ok)
	assert.Equal(t, Columns{Supplier: 0, Product: 1, SupplierCode: -1, SourcePrice: -1, SourceUnit: -1, UnitPrice: 2, Unit: 3}, cols)

	cols, ok = ClassifyHeader([]string{"Codice fornitore", "Fornitore", "Linea prodotto", "Prezzo origine", "Unità origine", "Prezzo", "Unità"})
	require.True(t, ok)
	assert.Equal(t, Columns{Supplier: 1, Product: 2, SupplierCode: 0, SourcePrice: 3, SourceUnit: 4, UnitPrice: 5, Unit: 6}, cols)

	cols, ok = ClassifyHeader([]string{"Supplier", "Product", "Source price", "Source unit", "Price", "Unit"})
	require.True(t, ok)
	assert.Equal(t, 2, cols.SourcePrice)
	assert.Equal(t, 3, cols.SourceUnit)
	assert.Equal(t, 4, cols.UnitPrice)
	assert.Equal(t, 5, cols.Unit)

	_, ok = ClassifyHeader([]string{"Désignation", "Prix"})
	assert.False(t, ok)
}

func TestParseSupplierText_Scenario(t *testing.T) {
	text := "Fournisseur,Désignation,Prix unitaire,Unité\n" +
		"Boucherie Martin,Filet de bœuf,\"32,50\",Kg\n"

	report := ParseSupplierText(text)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 1, report.Tables)

	row := report.Rows[0]
	assert.Equal(t, "Boucherie Martin", row.Supplier)
	assert.Equal(t, "Filet de bœuf", row.Product)
	require.NotNil(t, row.UnitPrice)
	assert.Equal(t, 32.5, *row.UnitPrice)
	require.NotNil(t, row.Unit)
	assert.Equal(t, catalog.UnitKilogram, *row.Unit)
}

func TestParseSupplierText_MultipleTablesAndNoise(t *testing.T) {
	text := "Liste de prix 2024;;\n" +
		"orphan;row;1\n" +
		"Fournisseur;Désignation;Prix\n" +
		"Primeurs du Sud;Tomates;2,10\n" +
		";Sans fournisseur;1\n" +
		"Merci d'ajouter vos produits;x;\n" +
		"Primeurs du Sud;Total;99\n" +
		";;\n" +
		"Code fournisseur;Fornitore;Prodotto;Prezzo;Unità\n" +
		"EP-1;Épicerie Rossi;Pomodori pelati;\"1.234,56\";cartons\n"

	report := ParseSupplierText(text)
	assert.Equal(t, 2, report.Tables)
	assert.Equal(t, 3, report.Skipped)
	require.Len(t, report.Rows, 2)

	assert.Equal(t, "Tomates", report.Rows[0].Product)
	assert.Nil(t, report.Rows[0].Unit)

	second := report.Rows[1]
	assert.Equal(t, "Épicerie Rossi", second.Supplier)
	require.NotNil(t, second.SupplierCode)
	assert.Equal(t, "EP-1", *second.SupplierCode)
	assert.Equal(t, 1234.56, *second.UnitPrice)
	assert.Equal(t, catalog.UnitPiece, *second.Unit)
}

func TestParseSupplierText_TitleLineWithOtherDelimiter(t *testing.T) {
	report := ParseSupplierText("Listino; aggiornato\nFornitore,Prodotto,Prezzo,Unità\nRossi,Pomodoro,\"2,10\",kg\n")
	assert.Equal(t, 1, report.Tables)
	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.Equal(t, "Rossi", row.Supplier)
	assert.Equal(t, "Pomodoro", row.Product)
	require.NotNil(t, row.UnitPrice)
	assert.Equal(t, 2.1, *row.UnitPrice)
	require.NotNil(t, row.Unit)
	assert.Equal(t, catalog.UnitKilogram, *row.Unit)

	report = ParseSupplierText("Prix, TVA incluse\nFournisseur;Désignation;Prix\nPrimeurs du Sud;Tomates;2,10\n")
	assert.Equal(t, 1, report.Tables)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "Tomates", report.Rows[0].Product)
	assert.Equal(t, 2.1, *report.Rows[0].UnitPrice)
}

func TestImportRow_FillBlanks(t *testing.T) {
	first := ImportRow{Supplier: "A", Product: "B", UnitPrice: ptr(1)}
	first.FillBlanks(ImportRow{UnitPrice: ptr(2), SourcePrice: ptr(10)})
	assert.Equal(t, 1.0, *first.UnitPrice)
	assert.Equal(t, 10.0, *first.SourcePrice)
}

func TestParse_Workbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Fournisseur", "Désignation", "Prix unitaire", "Unité"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Boucherie Martin", "Filet de bœuf", "32,50", "Kg"}))
	_, err := f.NewSheet("Vins")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Vins", "A1", &[]interface{}{"Supplier", "Product", "Price", "Unit"}))
	require.NoError(t, f.SetSheetRow("Vins", "A2", &[]interface{}{"Cave Lambert", "Chablis", "12.40", "bottle"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data := buf.Bytes()
	assert.True(t, IsWorkbook(data))

	report, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tables)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "Cave Lambert", report.Rows[1].Supplier)
	assert.Equal(t, catalog.UnitPiece, *report.Rows[1].Unit)
}

func TestParse_InvalidWorkbook(t *testing.T) {
	_, err := Parse([]byte("PK\x03\x04not really a zip"))
	assert.Error(t, err)
}

func ptr(f float64) *float64 { return &f }
