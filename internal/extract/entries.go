package extract

// entryData is what the nested "entries" array format carries: an
// exception-typed entry holds frames (and exception info), a
// breadcrumbs-typed entry holds breadcrumb values.
type entryData struct {
	frames      []any
	breadcrumbs []any
	excType     string
	excValue    string
}

func entriesOf(entries []any) entryData {
	var out entryData
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		data := PickMap(entry, "data")
		if data == nil {
			continue
		}
		switch PickString(entry, "", "type") {
		case "exception":
			values := PickSlice(data, "values")
			if len(values) == 0 {
				continue
			}
			first := values[0]
			if out.frames == nil {
				out.frames = frameList(first)
			}
			if out.excType == "" {
				out.excType = PickString(first, "", "type")
			}
			if out.excValue == "" {
				out.excValue = PickString(first, "", "value")
			}
		case "breadcrumbs":
			if out.breadcrumbs == nil {
				out.breadcrumbs = PickSlice(data, "values")
			}
		}
	}
	return out
}
