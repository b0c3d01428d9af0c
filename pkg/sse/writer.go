package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// ContentFrame carries one chunk of model output.
type ContentFrame struct {
	Content string `json:"content"`
}

// ErrorFrame reports a failure after streaming has started. No Done frame
// follows it.
type ErrorFrame struct {
	Error string `json:"error"`
}

// Writer writes "data:" frames and flushes after each one so tokens reach
// the client as they are produced.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w. If w is already a *bufio.Writer it is used directly.
func NewWriter(w io.Writer) *Writer {
	if bw, ok := w.(*bufio.Writer); ok {
		return &Writer{w: bw}
	}
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteJSON writes v as a single data frame.
func (w *Writer) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	return w.writeData(string(b))
}

// WriteContent writes a content frame.
func (w *Writer) WriteContent(content string) error {
	return w.WriteJSON(ContentFrame{Content: content})
}

// WriteError writes an error frame.
func (w *Writer) WriteError(msg string) error {
	return w.WriteJSON(ErrorFrame{Error: msg})
}

// WriteDone writes the terminating frame.
func (w *Writer) WriteDone() error {
	return w.writeData(Done)
}

func (w *Writer) writeData(data string) error {
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.w.Flush()
}
