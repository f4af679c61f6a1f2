package extract

import (
	"fmt"
	"sort"
	"strings"

	"error-collector/internal/schemas"
)

// FormatFrames renders a vendor-supplied frame list (innermost call last,
// source order) into the three stored representations: the plain one-line
// trace, the structured per-frame records, and the context-annotated
// detailed trace. Frames are walked in reverse so the innermost call comes
// first, matching how a traceback is read. An empty input yields empty
// artifacts, not an error.
func FormatFrames(frames []any) (trace string, files []schemas.FrameRecord, detailed string) {
	if len(frames) == 0 {
		return "", nil, ""
	}

	lines := make([]string, 0, len(frames))
	blocks := make([]string, 0, len(frames))
	files = make([]schemas.FrameRecord, 0, len(frames))

	for i := len(frames) - 1; i >= 0; i-- {
		frame := frames[i]

		filename := PickString(frame, "unknown", "filename", "module")
		line := "?"
		lineNo := 0
		if n, ok := PickFloat(frame, "lineno", "lineNo", "line"); ok {
			lineNo = int(n)
			line = fmt.Sprintf("%d", lineNo)
		}
		function := PickString(frame, "unknown", "function")
		absPath := PickString(frame, filename, "abs_path", "absPath")

		lines = append(lines, fmt.Sprintf("  File %q, line %s, in %s", filename, line, function))

		rec := schemas.FrameRecord{
			Filename:    filename,
			AbsPath:     absPath,
			Line:        lineNo,
			Function:    function,
			ContextLine: PickString(frame, "", "context_line", "contextLine"),
			PreContext:  stringList(PickSlice(frame, "pre_context", "preContext")),
			PostContext: stringList(PickSlice(frame, "post_context", "postContext")),
			Vars:        varMap(PickMap(frame, "vars")),
		}
		files = append(files, rec)
		blocks = append(blocks, detailBlock(rec, line))
	}

	return strings.Join(lines, "\n"), files, strings.Join(blocks, "\n")
}

func detailBlock(rec schemas.FrameRecord, line string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File %q, line %s, in %s\n", rec.AbsPath, line, rec.Function)
	for _, l := range rec.PreContext {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if rec.ContextLine != "" {
		b.WriteString("> ")
		b.WriteString(rec.ContextLine)
		b.WriteByte('\n')
	}
	for _, l := range rec.PostContext {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if len(rec.Vars) > 0 {
		b.WriteString("  Variables:\n")
		for _, name := range sortedKeys(rec.Vars) {
			fmt.Fprintf(&b, "    %s = %s\n", name, rec.Vars[name])
		}
	}
	return b.String()
}

func stringList(in []any) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if s, ok := v.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

func varMap(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic variable order keeps the detailed trace stable across runs.
	sort.Strings(keys)
	return keys
}
