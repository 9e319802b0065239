//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/geoexplorer/internal/selection"
)

// decodeSelection is called from JavaScript with location.search and
// returns the selection it carries as JSON.
func decodeSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "missing arguments"}
	}
	return toJSON(selection.DecodeQuery(args[0].String()))
}

// mergeSelection rewrites the selection params of a page URL. Arguments are
// the URL and the selection as JSON.
func mergeSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return map[string]interface{}{"error": "missing arguments"}
	}

	var s selection.State
	if err := json.Unmarshal([]byte(args[1].String()), &s); err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("failed to parse selection: %v", err)}
	}
	// Round-trip through the query form so invalid parts fall back.
	s = selection.DecodeQuery(s.QueryString())

	out, err := selection.Merge(args[0].String(), s)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return out
}

func basemaps(this js.Value, args []js.Value) interface{} {
	return toJSON(selection.Basemaps())
}

func toJSON(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return string(data)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("geoexplorerDecodeSelection", js.FuncOf(decodeSelection))
	js.Global().Set("geoexplorerMergeSelection", js.FuncOf(mergeSelection))
	js.Global().Set("geoexplorerBasemaps", js.FuncOf(basemaps))

	fmt.Println("GeoExplorer WASM module loaded")
	<-c
}
