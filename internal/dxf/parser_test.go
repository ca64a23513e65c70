package dxf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doc joins alternating code/value lines into DXF text.
func doc(pairs ...string) string {
	return strings.Join(pairs, "\n") + "\n"
}

func entitiesSection(body ...string) string {
	head := []string{"0", "SECTION", "2", "ENTITIES"}
	tail := []string{"0", "ENDSEC", "0", "EOF"}
	all := append(append(head, body...), tail...)
	return doc(all...)
}

func TestParseLine(t *testing.T) {
	text := entitiesSection(
		"0", "LINE",
		"8", "outline",
		"10", "1.5",
		"20", "2",
		"11", "10",
		"21", "-4.25",
	)

	got := Parse(text)

	require.Len(t, got, 1)
	assert.Equal(t, Line{Layer: "outline", X1: 1.5, Y1: 2, X2: 10, Y2: -4.25}, got[0])
	assert.Equal(t, "LINE", got[0].Kind())
	assert.Equal(t, "outline", got[0].LayerName())
}

func TestParseKeepsFileOrder(t *testing.T) {
	text := entitiesSection(
		"0", "CIRCLE", "10", "5", "20", "5", "40", "2",
		"0", "ARC", "10", "0", "20", "0", "40", "3", "50", "350", "51", "10",
		"0", "LINE", "10", "0", "20", "0", "11", "1", "21", "1",
	)

	got := Parse(text)

	require.Len(t, got, 3)
	assert.Equal(t, Circle{CX: 5, CY: 5, R: 2}, got[0])
	assert.Equal(t, Arc{R: 3, StartDeg: 350, EndDeg: 10}, got[1])
	assert.Equal(t, Line{X2: 1, Y2: 1}, got[2])
}

func TestParseLWPolyline(t *testing.T) {
	text := entitiesSection(
		"0", "LWPOLYLINE",
		"8", "0",
		"90", "3",
		"70", "1",
		"10", "0", "20", "0",
		"10", "10", "20", "0",
		"10", "10", "20", "10",
	)

	got := Parse(text)

	require.Len(t, got, 1)
	poly, ok := got[0].(Polyline)
	require.True(t, ok)
	assert.True(t, poly.Closed)
	assert.Equal(t, []Point{{0, 0}, {10, 0}, {10, 10}}, poly.Points)
}

func TestParseLWPolylineKeepsOriginVertex(t *testing.T) {
	text := entitiesSection(
		"0", "LWPOLYLINE",
		"10", "5", "20", "5",
		"10", "0", "20", "0",
	)

	got := Parse(text)

	require.Len(t, got, 1)
	assert.Equal(t, []Point{{5, 5}, {0, 0}}, got[0].(Polyline).Points)
	assert.False(t, got[0].(Polyline).Closed)
}

func TestParseClassicPolylineWithVertices(t *testing.T) {
	text := entitiesSection(
		"0", "POLYLINE",
		"8", "walls",
		"66", "1",
		"10", "0", "20", "0",
		"70", "1",
		"0", "VERTEX", "8", "walls", "10", "1", "20", "1",
		"0", "VERTEX", "8", "walls", "10", "2", "20", "1",
		"0", "VERTEX", "8", "walls", "10", "2", "20", "3",
		"0", "SEQEND", "8", "walls",
		"0", "LINE", "10", "9", "20", "9", "11", "8", "21", "8",
	)

	got := Parse(text)

	require.Len(t, got, 2)
	assert.Equal(t, Polyline{Layer: "walls", Points: []Point{{1, 1}, {2, 1}, {2, 3}}, Closed: true}, got[0])
	assert.Equal(t, Line{X1: 9, Y1: 9, X2: 8, Y2: 8}, got[1])
}

func TestParseIgnoresUnknownEntities(t *testing.T) {
	text := entitiesSection(
		"0", "TEXT", "10", "99", "20", "99", "1", "hello",
		"0", "CIRCLE", "10", "1", "20", "2", "40", "3",
		"0", "SPLINE", "10", "7", "20", "7",
	)

	got := Parse(text)

	require.Len(t, got, 1)
	assert.Equal(t, Circle{CX: 1, CY: 2, R: 3}, got[0])
}

func TestParseMalformedNumbersReadAsZero(t *testing.T) {
	text := entitiesSection(
		"0", "CIRCLE", "10", "abc", "20", "4x", "40", "2.5",
	)

	got := Parse(text)

	require.Len(t, got, 1)
	assert.Equal(t, Circle{R: 2.5}, got[0])
}

func TestParseMissingCodesLeaveZeroFields(t *testing.T) {
	got := Parse(entitiesSection("0", "ARC", "40", "4"))

	require.Len(t, got, 1)
	assert.Equal(t, Arc{R: 4}, got[0])
}

func TestParseOnlyReadsEntitiesSection(t *testing.T) {
	text := doc(
		"0", "SECTION", "2", "BLOCKS",
		"0", "LINE", "10", "50", "20", "50", "11", "60", "21", "60",
		"0", "ENDSEC",
		"0", "SECTION", "2", "ENTITIES",
		"0", "CIRCLE", "10", "0", "20", "0", "40", "1",
		"0", "ENDSEC",
		"0", "SECTION", "2", "OBJECTS",
		"0", "LINE", "10", "70", "20", "70", "11", "80", "21", "80",
		"0", "ENDSEC",
	)

	got := Parse(text)

	require.Len(t, got, 1)
	assert.Equal(t, "CIRCLE", got[0].Kind())
}

func TestParseWithoutEntitiesSection(t *testing.T) {
	assert.Empty(t, Parse(doc("0", "SECTION", "2", "HEADER", "0", "ENDSEC", "0", "EOF")))
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("not a dxf file at all"))
}

func TestParseToleratesCRLFAndPadding(t *testing.T) {
	text := strings.ReplaceAll(entitiesSection(
		"  0", "LINE", " 10", " 1 ", " 20", "2", " 11", "3", " 21", "4",
	), "\n", "\r\n")

	got := Parse(text)

	require.Len(t, got, 1)
	assert.Equal(t, Line{X1: 1, Y1: 2, X2: 3, Y2: 4}, got[0])
}

func TestParseUnterminatedSection(t *testing.T) {
	text := doc("0", "SECTION", "2", "ENTITIES", "0", "LINE", "10", "1", "20", "1", "11", "2", "21", "2")

	got := Parse(text)

	require.Len(t, got, 1)
	assert.Equal(t, Line{X1: 1, Y1: 1, X2: 2, Y2: 2}, got[0])
}
