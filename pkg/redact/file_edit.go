package redact

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/docker/turnwire/pkg/chat"
)

// FileEditTools are the tools whose results carry a full diff.
var FileEditTools = []string{
	"file_edit_replace_string",
	"file_edit_replace_lines",
	"file_edit_insert",
}

// DiffPlaceholder replaces the diff of a successful file edit.
const DiffPlaceholder = "[diff omitted in context - call file_read on the target file if needed]"

// RedactFileEdit drops the diff from a successful file edit result. Counts,
// warnings and the success flag stay so the model can follow what happened.
func RedactFileEdit(output chat.ToolOutput) chat.ToolOutput {
	value := output.Value
	if !gjson.ValidBytes(value) {
		return output
	}
	root := gjson.ParseBytes(value)
	if !root.IsObject() {
		return output
	}
	if success := root.Get("success"); success.Type != gjson.True {
		return output
	}
	if diff := root.Get("diff"); diff.Type != gjson.String {
		return output
	}

	redacted, err := sjson.SetBytes(value, "diff", DiffPlaceholder)
	if err != nil {
		return output
	}
	return output.WithValue(redacted)
}
