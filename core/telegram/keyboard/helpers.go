package keyboard

const defaultCancelButtonText = "❌ Cancel"

// Chunk splits buttons into rows of up to n buttons; nil placeholders are skipped.
// n <= 1 puts every button on its own row.
func Chunk(n int, buttons ...*Button) Grid {
	if n <= 1 {
		items := make([]Item, len(buttons))
		for i, b := range buttons {
			items[i] = b
		}
		return Build(items...)
	}
	var rows []Item
	var row Row
	for _, b := range buttons {
		if b == nil {
			continue
		}
		row = append(row, b)
		if len(row) == n {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return Build(rows...)
}

// Cancel returns a cancel button sending data. An optional label overrides the default text.
func Cancel(data string, label ...string) *Button {
	text := defaultCancelButtonText
	if len(label) > 0 && label[0] != "" {
		text = label[0]
	}
	return B(text, Callback(data))
}
