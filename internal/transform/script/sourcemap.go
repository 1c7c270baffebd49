package script

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Chunk is one transpiled file of a concatenation and its source map.
type Chunk struct {
	Code []byte
	Map  []byte
}

type indexMap struct {
	Version  int       `json:"version"`
	File     string    `json:"file"`
	Sections []section `json:"sections"`
}

type section struct {
	Offset offset          `json:"offset"`
	Map    json.RawMessage `json:"map"`
}

type offset struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Concat joins the chunks with newlines and returns the result together with
// an index source map (one section per chunk) for file.
func Concat(file string, chunks []Chunk) (code, sourceMap []byte, err error) {
	idx := indexMap{Version: 3, File: file, Sections: make([]section, 0, len(chunks))}
	var buf bytes.Buffer
	line := 0
	for i, c := range chunks {
		if i > 0 {
			buf.WriteByte('\n')
			line++
		}
		if len(c.Map) > 0 {
			if !json.Valid(c.Map) {
				return nil, nil, fmt.Errorf("source map of chunk %d in %s is not valid JSON", i, file)
			}
			idx.Sections = append(idx.Sections, section{Offset: offset{Line: line}, Map: c.Map})
		}
		buf.Write(c.Code)
		line += bytes.Count(c.Code, []byte{'\n'})
	}
	sourceMap, err = json.Marshal(idx)
	if err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), sourceMap, nil
}
