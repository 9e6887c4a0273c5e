// Package iojson handles JSON input and output for CLI commands: pretty
// output on stdout and piped-or-file input for bulk imports.
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteWith marshals obj as indented JSON onto w. A marshal failure writes a
// JSON error object to ew instead, so --json consumers always get valid JSON
// on exactly one stream.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	bits, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		msg, _ := json.Marshal(err.Error())
		_, err = fmt.Fprintf(ew, `{"message":"marshal failed","data":{"json_error":%s}}`+"\n", msg)
		return err
	}

	_, err = fmt.Fprintln(w, string(bits))
	return err
}

// Write calls WriteWith with [os.Stdout] and [os.Stderr].
func Write(obj any) error {
	return WriteWith(os.Stdout, os.Stderr, obj)
}
