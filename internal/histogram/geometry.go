package histogram

// Sensor geometry of the FE-I4 pixel matrix.
const (
	MaxColumn  = 80
	MaxRow     = 336
	PixelCount = MaxColumn * MaxRow
)

// ToT and relative BCID are 4-bit fields.
const (
	TotBins     = 16
	RelBcidBins = 16
)

// PixelIndex returns the flat index of a 0-based pixel in a per-pixel map.
func PixelIndex(col, row int) int {
	return col + row*MaxColumn
}

// occupancyOffset returns the flat index into the occupancy buffer. Column
// varies fastest, then row, then parameter index.
func occupancyOffset(col, row, parIndex int) int64 {
	return int64(col) + int64(row)*int64(MaxColumn) + int64(parIndex)*int64(MaxColumn)*int64(MaxRow)
}
