package model

// RawCell is a cell as supplied by the spreadsheet reader, before virtual
// fill or dependency extraction.
type RawCell struct {
	Address string `json:"address"`
	Value   string `json:"value"`
	Formula string `json:"formula,omitempty"`
}

// MergeBounds is one merged region's inclusive bounds as reported by the
// reader. The anchor (top-left) cell's content arrives as an ordinary RawCell.
type MergeBounds struct {
	TopLeft     string `json:"topLeft"`
	BottomRight string `json:"bottomRight"`
}

// RawSheet is everything the reader collaborator hands the engine for one
// sheet. FailedCells counts cells that could not be read and were skipped.
type RawSheet struct {
	Name        string        `json:"name"`
	Cells       []RawCell     `json:"cells"`
	Merges      []MergeBounds `json:"merges,omitempty"`
	FailedCells int           `json:"failedCells,omitempty"`
}

// RawWorkbook is the full reader output for one file.
type RawWorkbook struct {
	Filename string     `json:"filename"`
	Sheets   []RawSheet `json:"sheets"`
}
