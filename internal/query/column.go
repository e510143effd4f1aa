// Package query holds the column allow-list and the filter description used to
// build listing queries.
//
// Only values of the closed Column and Direction types are ever placed into
// SQL text. Everything the caller typed goes through Resolve* first, and
// free-form search keywords stay in Condition.Value for parameter binding.
package query

import "strings"

// Column identifies one of the fixed, known fields of a price record.
// The zero value is ColumnID.
type Column int

const (
	ColumnID Column = iota
	ColumnRegion
	ColumnName
	ColumnAddress
	ColumnBrand
	ColumnSelfService
	ColumnPremiumPrice
	ColumnRegularPrice
	ColumnDieselPrice
	ColumnKerosenePrice

	columnCount
)

// DefaultColumn is substituted for any unrecognized column input.
const DefaultColumn = ColumnID

type columnSpec struct {
	name       string
	sortable   bool
	searchable bool
	fuelPrice  bool
}

var columnSpecs = [columnCount]columnSpec{
	ColumnID:            {name: "id", sortable: true, searchable: true},
	ColumnRegion:        {name: "region", sortable: true, searchable: true},
	ColumnName:          {name: "name", sortable: true, searchable: true},
	ColumnAddress:       {name: "address", sortable: true, searchable: true},
	ColumnBrand:         {name: "brand", sortable: true, searchable: true},
	ColumnSelfService:   {name: "self_service", sortable: true, searchable: true},
	ColumnPremiumPrice:  {name: "premium_price", sortable: true, searchable: true, fuelPrice: true},
	ColumnRegularPrice:  {name: "regular_price", sortable: true, searchable: true, fuelPrice: true},
	ColumnDieselPrice:   {name: "diesel_price", sortable: true, searchable: true, fuelPrice: true},
	ColumnKerosenePrice: {name: "kerosene_price", sortable: true, searchable: true, fuelPrice: true},
}

var columnsByName = func() map[string]Column {
	m := make(map[string]Column, columnCount)
	for i := range columnCount {
		m[columnSpecs[i].name] = i
	}
	return m
}()

func (c Column) spec() columnSpec {
	if c < 0 || c >= columnCount {
		return columnSpecs[DefaultColumn]
	}
	return columnSpecs[c]
}

// Name returns the physical column name. Out-of-range values report the
// default column's name, so the result is always a member of the allow-list.
func (c Column) Name() string {
	return c.spec().name
}

// String implements fmt.Stringer.
func (c Column) String() string {
	return c.Name()
}

// IsFuelPrice reports whether the column holds a fuel price, where 0 means
// "not sold".
func (c Column) IsFuelPrice() bool {
	return c.spec().fuelPrice
}

// Columns returns every known column in declaration order.
func Columns() []Column {
	cols := make([]Column, 0, columnCount)
	for i := range columnCount {
		cols = append(cols, i)
	}
	return cols
}

// FuelPriceColumns returns the four fuel-price columns.
func FuelPriceColumns() []Column {
	return []Column{ColumnPremiumPrice, ColumnRegularPrice, ColumnDieselPrice, ColumnKerosenePrice}
}

// ResolveSortColumn maps untrusted input to a sortable column.
// Unknown input silently becomes DefaultColumn.
func ResolveSortColumn(input string) Column {
	if c, ok := lookup(input); ok && c.spec().sortable {
		return c
	}
	return DefaultColumn
}

// ResolveSearchColumn maps untrusted input to a searchable column.
// Unknown input silently becomes DefaultColumn.
func ResolveSearchColumn(input string) Column {
	if c, ok := lookup(input); ok && c.spec().searchable {
		return c
	}
	return DefaultColumn
}

// lookup matches exact identifiers only; "Brand" or "brand " are unknown.
func lookup(input string) (Column, bool) {
	c, ok := columnsByName[input]
	return c, ok
}

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// ResolveDirection normalizes untrusted input. "desc" (any case, surrounding
// space ignored) is Descending; everything else, including "asc", is Ascending.
func ResolveDirection(input string) Direction {
	if strings.EqualFold(strings.TrimSpace(input), "desc") {
		return Descending
	}
	return Ascending
}

// SQL returns the ORDER BY keyword for the direction.
func (d Direction) SQL() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// String returns the lowercase query-string form ("asc" or "desc").
func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}
